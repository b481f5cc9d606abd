package endpoints

import (
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/defra"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// DefraManager is nil unless the server manages a DefraDB container.
	DefraManager *defra.DockerManager
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DefraManager: cfg.DefraManager},

		// Catalog endpoints
		&ListProfilesEndpoint{},
		&ListBlueprintsEndpoint{},
		&ListFiltersEndpoint{},
		&RefreshCatalogEndpoint{},

		// Compile and history endpoints
		&CompileEndpoint{},
		&ListGenerationsEndpoint{},
		&GetGenerationEndpoint{},
		&SaveVersionEndpoint{},
		&ListPromptVersionsEndpoint{},

		// User blueprint endpoints
		&CreateUserBlueprintEndpoint{},
		&ListUserBlueprintsEndpoint{},
		&GetUserBlueprintEndpoint{},
		&UpdateUserBlueprintEndpoint{},
		&ListBlueprintVersionsEndpoint{},

		// Model endpoints
		&CreateModelEndpoint{},
		&ListModelsEndpoint{},
		&GetModelEndpoint{},
		&ListModelVersionsEndpoint{},
		&GetVersionEndpoint{},

		// Dataset endpoints
		&InitDatasetEndpoint{},
		&ValidateDatasetEndpoint{},
		&ListDatasetsEndpoint{},
		&GetDatasetEndpoint{},

		// Training job endpoints
		&CreateJobEndpoint{},
		&RetryJobEndpoint{},
		&ListJobsEndpoint{},
		&GetJobEndpoint{},

		// Worker callbacks
		&TrainingWebhookEndpoint{},

		// Activation endpoints
		&ActivateEndpoint{},
		&GetActivationEndpoint{},
		&ClearActivationEndpoint{},
	}
}
