package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/faqgraph/rag"
)

const extractionSystemPrompt = `Bạn là hệ thống trích xuất thực thể cho trợ lý chăm sóc khách hàng ví điện tử.
Chỉ trả về JSON hợp lệ, không giải thích.`

// llmEntity is what the LLM returns for one entity.
type llmEntity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type llmResult struct {
	Entities []llmEntity `json:"entities"`
}

func buildExtractionPrompt(text string) string {
	types := make([]string, len(rag.EntityTypes))
	for i, t := range rag.EntityTypes {
		types[i] = string(t)
	}
	var b strings.Builder
	b.WriteString("Trích xuất các thực thể trong câu hỏi của khách hàng.\n")
	b.WriteString("Các loại thực thể hợp lệ: ")
	b.WriteString(strings.Join(types, ", "))
	b.WriteString(".\n")
	b.WriteString("Topic là chủ đề chính (ví dụ: chuyển tiền, nạp tiền, liên kết ngân hàng). ")
	b.WriteString("Action là hành động người dùng muốn làm. Bank là tên ngân hàng. ")
	b.WriteString("Error là mô tả lỗi, ErrorCode là mã lỗi.\n")
	b.WriteString(`Định dạng: {"entities": [{"type": "Topic", "value": "chuyển tiền"}]}` + "\n\n")
	b.WriteString("Câu hỏi: ")
	b.WriteString(text)
	return b.String()
}

// ExtractLLM asks the LLM for entities. Unknown types are dropped.
func (e *Extractor) ExtractLLM(ctx context.Context, text string) (rag.Entities, error) {
	if e.llm == nil {
		return nil, errors.New("no llm configured")
	}
	raw, err := e.llm.GenerateWithSystem(ctx, extractionSystemPrompt, buildExtractionPrompt(text))
	if err != nil {
		return nil, err
	}
	items, err := parseLLMEntities(raw)
	if err != nil {
		return nil, err
	}

	var out rag.Entities
	seen := make(map[string]bool)
	for _, it := range items {
		t, ok := rag.ParseEntityType(it.Type)
		value := strings.TrimSpace(it.Value)
		if !ok || value == "" {
			continue
		}
		norm := canonical(t, value)
		key := string(t) + "\x00" + norm
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rag.Entity{
			Type:       t,
			Value:      value,
			Normalized: norm,
			Source:     rag.SourceLLM,
			Confidence: e.config.LLMConfidence,
		})
	}
	return out, nil
}

// parseLLMEntities accepts {"entities": [...]}, a bare array, or a
// {"Type": ["value", ...]} map, optionally wrapped in code fences or prose.
func parseLLMEntities(raw string) ([]llmEntity, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("no json in llm response: %q", truncate(raw, 80))
	}

	if strings.HasPrefix(body, "[") {
		var items []llmEntity
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return nil, fmt.Errorf("parse llm entities: %w", err)
		}
		return items, nil
	}

	var res llmResult
	if err := json.Unmarshal([]byte(body), &res); err == nil && res.Entities != nil {
		return res.Entities, nil
	}

	var byType map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &byType); err != nil {
		return nil, fmt.Errorf("parse llm entities: %w", err)
	}
	var items []llmEntity
	for t, msg := range byType {
		var values []string
		if err := json.Unmarshal(msg, &values); err != nil {
			var single string
			if json.Unmarshal(msg, &single) != nil {
				continue
			}
			values = []string{single}
		}
		for _, v := range values {
			items = append(items, llmEntity{Type: t, Value: v})
		}
	}
	return items, nil
}

// extractJSON returns the outermost JSON object or array in s.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
