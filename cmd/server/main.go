// cmd/server/main.go
package main

import (
	"log"

	"github.com/Corphon/PersonaTownMCP/internal/app"

	// 注册可用的LLM提供者
	_ "github.com/Corphon/PersonaTownMCP/internal/llm/providers/glm"
	_ "github.com/Corphon/PersonaTownMCP/internal/llm/providers/openrouter"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}
