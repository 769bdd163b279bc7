package version

// Version of the keydrop binaries, set at build time:
//
//	go build -ldflags="-X 'github.com/BioHazard786/Keydrop/cli/internal/version.Version=v1.0.0'"
var Version = "dev"
