package memori

import (
	"fmt"

	"github.com/kadirpekel/memori/pkg/config"
	"github.com/kadirpekel/memori/pkg/llm"
)

// newLLMProvider builds an llm.Provider from one named config.LLM
// entry. Both adapters are real HTTP clients (see pkg/llm); there is
// no in-process fake provider.
func newLLMProvider(pc config.LLMProviderConfig) (llm.Provider, error) {
	switch pc.Type {
	case "anthropic":
		return llm.NewAnthropic(pc.APIKey, pc.Model, pc.Host), nil
	case "openai", "openai-compatible":
		return llm.NewOpenAICompatible(pc.APIKey, pc.Model, pc.Host), nil
	default:
		return nil, fmt.Errorf("memori: unsupported llm provider type %q", pc.Type)
	}
}

// classifierProviderKey is the cfg.LLM entry used to classify
// exchanges into long-term memories. A deployment with only one LLM
// entry may omit the key entirely.
const classifierProviderKey = "classifier"

func resolveClassifierConfig(llmCfg map[string]config.LLMProviderConfig) (config.LLMProviderConfig, error) {
	if pc, ok := llmCfg[classifierProviderKey]; ok {
		return pc, nil
	}
	if len(llmCfg) == 1 {
		for _, pc := range llmCfg {
			return pc, nil
		}
	}
	return config.LLMProviderConfig{}, fmt.Errorf("memori: llm.%s is required (or exactly one llm entry)", classifierProviderKey)
}
