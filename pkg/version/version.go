package version

// Overridden at build time with -ldflags "-X github.com/kubev2v/transcription-api/pkg/version.gitVersion=...".
var (
	serviceName = "Modern Transcription API"
	gitVersion  = "1.0.0"
	gitCommit   = ""
)

type Info struct {
	ServiceName string `json:"service_name"`
	GitVersion  string `json:"git_version"`
	GitCommit   string `json:"git_commit"`
}

func Get() Info {
	return Info{
		ServiceName: serviceName,
		GitVersion:  gitVersion,
		GitCommit:   gitCommit,
	}
}
