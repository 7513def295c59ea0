// Package main 交互式成本问答控制台
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"cloudcost-kg-api/internal/application/costqa"
	"cloudcost-kg-api/internal/config"
	"cloudcost-kg-api/internal/wire"
	"cloudcost-kg-api/pkg/logger"
)

// consoleProvenanceCap 控制台模式下收紧溯源行数，保持输出可读
const consoleProvenanceCap = 15

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Pipeline.ProvenanceCap = consoleProvenanceCap

	// 控制台模式日志走 stderr 友好格式
	logger.Init("warn", "text")

	ctx := context.Background()

	app, cleanup, err := wire.InitializeApp(ctx, cfg)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	fmt.Println("Cloud cost knowledge graph console. Type a question, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		out, err := app.Engine.Ask(ctx, costqa.AskInput{Question: question})
		if err != nil {
			fmt.Printf("error: %v\n\n", err)
			continue
		}

		fmt.Printf("\n%s\n\n", out.Answer)
		if len(out.Concepts) > 0 {
			fmt.Printf("concepts:   %s\n", strings.Join(out.Concepts, ", "))
		}
		if len(out.Paths) > 0 {
			fmt.Printf("paths:      %s\n", strings.Join(out.Paths, "; "))
		}
		fmt.Printf("intent:     %s\n", out.Intent)
		fmt.Printf("confidence: %.2f\n\n", out.Confidence)
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("read error: %v\n", err)
		os.Exit(1)
	}
}
