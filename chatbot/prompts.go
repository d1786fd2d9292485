package chatbot

import (
	"strings"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/textutil"
)

const systemPrompt = "Bạn là trợ lý chăm sóc khách hàng của ứng dụng ví điện tử. " +
	"Luôn trả lời bằng tiếng Việt, thân thiện và ngắn gọn. " +
	"Chỉ dùng thông tin trong câu trả lời FAQ và tài liệu tham khảo được cung cấp; " +
	"không tự đặt ra mức phí, hạn mức hay thời gian xử lý. " +
	"Nếu thông tin không đủ, hãy đề nghị khách hàng liên hệ tổng đài."

var intentInstructions = map[rag.Intent]string{
	rag.IntentHowTo: "Trình bày hướng dẫn theo từng dòng dạng \"Bước N: ...\". " +
		"Giữ nguyên số bước và thứ tự các bước của câu trả lời FAQ.",
	rag.IntentTroubleshoot: "Xác nhận vấn đề khách hàng gặp phải, nêu nguyên nhân có thể và cách khắc phục. " +
		"Nếu câu trả lời FAQ có các bước, giữ nguyên định dạng \"Bước N: ...\".",
	rag.IntentInquiry: "Trả lời thẳng vào thông tin được hỏi (phí, hạn mức, thời gian, giấy tờ) trong câu đầu tiên, " +
		"sau đó bổ sung lưu ý nếu có.",
	rag.IntentGeneral: "Trả lời ngắn gọn và gợi ý khách hàng hỏi cụ thể hơn nếu cần.",
}

// buildPrompt assembles the generation prompt for a question.
func buildPrompt(in rag.Intent, question, history, docs, faqAnswer string) string {
	instruction, ok := intentInstructions[in]
	if !ok {
		instruction = intentInstructions[rag.IntentGeneral]
	}

	var b strings.Builder
	if history != "" {
		b.WriteString("Lịch sử hội thoại:\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}
	if docs != "" {
		b.WriteString("Tài liệu tham khảo:\n")
		b.WriteString(docs)
		b.WriteString("\n\n")
	}
	b.WriteString("Câu trả lời FAQ phù hợp nhất:\n")
	b.WriteString(faqAnswer)
	b.WriteString("\n\nCâu hỏi của khách hàng: ")
	b.WriteString(question)
	b.WriteString("\n\nYêu cầu: ")
	b.WriteString(instruction)
	return b.String()
}

const (
	greetingHello  = "Xin chào! Mình là trợ lý hỗ trợ ví điện tử. Bạn cần giúp gì về nạp tiền, rút tiền, chuyển tiền hay liên kết ngân hàng?"
	greetingThanks = "Rất vui được hỗ trợ bạn! Nếu còn thắc mắc gì, bạn cứ hỏi nhé."
	greetingBye    = "Cảm ơn bạn đã liên hệ. Chúc bạn một ngày tốt lành!"
)

func greetingReply(msg string) string {
	folded := textutil.Fold(msg)
	switch {
	case strings.Contains(folded, "tam biet"), strings.Contains(folded, "bye"):
		return greetingBye
	case strings.Contains(folded, "cam on"), strings.Contains(folded, "thank"), strings.Contains(folded, "tks"):
		return greetingThanks
	default:
		return greetingHello
	}
}
