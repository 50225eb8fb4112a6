package config

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
}

// GetAnswerConfig returns the AI configuration for question answering with fallback to global config
func (c *Config) GetAnswerConfig() OperationAIConfig {
	config := c.AI.Answer
	c.applyOperationDefaults(&config)
	return config
}

// GetCoverLetterConfig returns the AI configuration for cover letters with fallback to global config
func (c *Config) GetCoverLetterConfig() OperationAIConfig {
	config := c.AI.CoverLetter
	c.applyOperationDefaults(&config)
	return config
}

// GetChoiceConfig returns the AI configuration for radio/checkbox selection with fallback to global config
func (c *Config) GetChoiceConfig() OperationAIConfig {
	config := c.AI.Choice
	c.applyOperationDefaults(&config)
	return config
}
