package openai

var EstimateTokens = estimateTokens
