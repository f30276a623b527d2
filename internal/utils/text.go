// internal/utils/text.go
package utils

// SummarizeText 将文本截断为指定长度并添加省略号（按rune截断，中文安全）
func SummarizeText(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + "..."
}

// EstimateTokens 粗略估计文本的token数量，用于提供者未返回用量时的统计兜底。
// 中文字符按1.5个token计，其他字符按4字符1个token计。
func EstimateTokens(text string) int {
	chineseChars := 0
	otherChars := 0
	for _, r := range text {
		if r >= 0x4e00 && r <= 0x9fff {
			chineseChars++
		} else {
			otherChars++
		}
	}
	return int(float64(chineseChars)*1.5 + float64(otherChars)/4)
}
