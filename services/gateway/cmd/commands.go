package main

// setupCommands initializes all commands and their relationships
func setupCommands() {
	// Run the HTTP server
	rootCmd.AddCommand(serveCmd)

	// One-shot commands against the configured stores
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(queryCmd)

	// Offline SQL bounding
	rootCmd.AddCommand(sanitizeCmd)
}
