// Package conversation tracks where a user is inside a multi-step answer and
// what the session has talked about so far.
//
// When an answer contains numbered steps ("Bước 1: ...", "Bước 2: ..."),
// Manager.Begin stores them on the session. Later messages are checked with
// DetectContinuation: "tiếp", "xong bước 2", "quay lại bước 1", "nhắc lại"
// and "xong hết rồi" are answered from the stored steps without another
// retrieval, while "bước 3 bị lỗi" is handed back to retrieval with the step
// text appended to the query.
//
// Chat memory is a langchaingo ConversationWindowBuffer rebuilt from the
// stored history. Turns that fall out of the window are condensed into the
// session summary, by the LLM when one is configured.
package conversation
