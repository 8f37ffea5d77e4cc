package aggregator

import (
	"github.com/ppiankov/legislens/internal/adapters"
	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/news"
	"github.com/ppiankov/legislens/internal/ondevice"
	"github.com/ppiankov/legislens/internal/telemetry"
	"github.com/ppiankov/legislens/internal/worker"
)

// NewFromConfig wires every adapter from configuration. Components that cannot
// be constructed are left unavailable rather than failing startup.
func NewFromConfig(cfg *model.Config, limiter *worker.Limiter, logger *telemetry.Logger) *Aggregator {
	if logger == nil {
		logger = telemetry.Discard()
	}

	// On-device runtime (local Ollama daemon)
	var runtime ondevice.Runtime
	if cfg.OnDevice.Enabled {
		daemonCfg := llm.ConfigFromModel(model.LLMConfig{Provider: "ollama", BaseURL: cfg.OnDevice.BaseURL}, cfg.HTTP)
		daemon, err := llm.NewOllamaProvider(daemonCfg)
		if err != nil {
			logger.Warn("on-device runtime disabled", map[string]any{"error": err})
		} else {
			runtime = ondevice.NewOllamaRuntime(daemon, cfg.OnDevice, logger)
		}
	}

	// Cloud provider
	var cloud llm.Provider
	cloudCfg := llm.ConfigFromModel(cfg.Cloud, cfg.HTTP)
	if cloudCfg.IsConfigured() {
		p, err := llm.NewProvider(cloudCfg)
		if err != nil {
			logger.Warn("cloud provider disabled", map[string]any{"provider": cfg.Cloud.Provider, "error": err})
		} else {
			cloud = p
		}
	}

	onDeviceOpts := []adapters.Option{
		adapters.WithMaxChars(cfg.Analysis.MaxTextChars),
		adapters.WithInitTimeout(cfg.OnDevice.SessionTimeout),
		adapters.WithTemperature(cfg.OnDevice.Temperature),
	}
	cloudOpts := []adapters.Option{adapters.WithMaxChars(cfg.Analysis.MaxTextChars)}

	deps := Deps{
		Summarizer:   adapters.NewSummarizer(runtime, onDeviceOpts...),
		Categorizer:  adapters.NewCategorizer(runtime, onDeviceOpts...),
		Urgency:      adapters.NewUrgencyClassifier(runtime, onDeviceOpts...),
		Provisions:   adapters.NewProvisionExtractor(runtime, onDeviceOpts...),
		Stakeholders: adapters.NewStakeholderAnalyzer(runtime, onDeviceOpts...),
		Historical:   adapters.NewHistoricalAnalyzer(cloud, cloudOpts...),
		Impact:       adapters.NewImpactAnalyzer(cloud, cloudOpts...),
		News:         news.NewCorrelatorFromConfig(cfg.News, cfg.HTTP, limiter, logger),
		Runtime:      runtime,
		Cloud:        cloud,
	}

	return New(deps,
		WithLogger(logger),
		WithMaxProvisions(cfg.Analysis.MaxProvisions),
	)
}
