package version

// Version is set at build time with -ldflags "-X github.com/liamg/netradar/version.Version=..."
var Version string
