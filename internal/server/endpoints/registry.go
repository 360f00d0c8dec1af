package endpoints

import (
	"github.com/copyforge/copyforge/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Marketing endpoints
		&AnalyzeProductEndpoint{},
		&GenerateContentEndpoint{},
		&AnalyzeCompetitorEndpoint{},
		&AnalyzeDocumentEndpoint{},
		&GenerateFromDocumentEndpoint{},

		// LLM call history endpoints
		&ListLLMCallsEndpoint{},
		&GetLLMCallEndpoint{},

		// Swagger/OpenAPI
		&SwaggerEndpoint{},
	}
}
