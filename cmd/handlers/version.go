package handlers

// Version is stamped at build time via -ldflags "-X newslens/cmd/handlers.Version=...".
var Version = "0.1.0-dev"
