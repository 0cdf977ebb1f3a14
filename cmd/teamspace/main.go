package main

import (
	"k8s.io/klog/v2"

	"github.com/raids-lab/teamspace/cmd/teamspace/helper"
)

// @title						Teamspace API
// @version						1.0.0
// @description					This is the API server for Teamspace, a multi-tenant project management platform.
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description					Login via /v1/auth/login, then supply 'Bearer ${TOKEN}' to access protected routes
func main() {
	// Initialize configuration
	configInit := helper.NewConfigInitializer()
	backendConfig := configInit.GetBackendConfig()

	// Load debug environment if needed
	if err := configInit.LoadDebugEnvironment(); err != nil {
		klog.Fatalf("Failed to load env: %s", err)
	}

	// Initialize register config and dependencies
	registerConfig, cronMgr := configInit.InitializeRegisterConfig()

	// Start HTTP server
	serverRunner := helper.NewServerRunner(backendConfig)
	serverRunner.StartServer(registerConfig, cronMgr)
}
