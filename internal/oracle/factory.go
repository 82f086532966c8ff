package oracle

import (
	"fmt"

	"difendimi.live/intake/common/llm"
	"difendimi.live/intake/core/config"
)

// FromConfig builds the oracle selected by ORACLE_MODE.
func FromConfig(cfg config.OracleConfig, llmCfg config.LLMConfig) (Oracle, error) {
	clientCfg := llmCfg.ClientConfig()

	switch cfg.Mode {
	case config.OracleModeStructured:
		client, err := llm.New(clientCfg)
		if err != nil {
			return nil, fmt.Errorf("creating oracle llm client: %w", err)
		}
		return NewStructuredOracle(client), nil
	case config.OracleModeAgent:
		client, err := llm.NewToolClient(clientCfg)
		if err != nil {
			return nil, fmt.Errorf("creating oracle agent client: %w", err)
		}
		return NewAgentOracle(client), nil
	case config.OracleModeHTTP:
		return NewHTTPOracle(cfg.HTTPURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown oracle mode %q", cfg.Mode)
	}
}
