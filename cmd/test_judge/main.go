package main

import (
	"context"
	"flag"
	"fmt"

	"debatehub/config"
	"debatehub/services"
)

func main() {
	configPath := flag.String("config", "./config/config.yml", "path to config file")
	claim := flag.String("claim", "The Great Wall of China is visible from the Moon with the naked eye.", "claim to verify")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	ctx := context.Background()
	judge, err := services.NewGeminiJudge(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		panic("failed to create judge: " + err.Error())
	}

	verdict, err := judge.Judge(ctx, *claim)
	if err != nil {
		panic("verification failed: " + err.Error())
	}

	fmt.Println("Result:", verdict.Result)
	if verdict.ConfidenceScore != nil {
		fmt.Printf("Confidence: %.2f\n", *verdict.ConfidenceScore)
	}
	for _, source := range verdict.Sources {
		fmt.Println("Source:", source.URL)
	}
}
