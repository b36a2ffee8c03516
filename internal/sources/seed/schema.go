package seed

// File represents the top-level structure of links.yaml
type File struct {
	Links []LinkEntry `yaml:"links"`
}

// LinkEntry is one pre-provisioned link. The ID is chosen by the operator so
// printed or shared trackable URLs survive restarts.
type LinkEntry struct {
	ID          string                 `yaml:"id"`
	OriginalURL string                 `yaml:"originalUrl"`
	AppScheme   string                 `yaml:"appScheme"`
	FallbackURL string                 `yaml:"fallbackUrl,omitempty"`
	Campaign    string                 `yaml:"campaign,omitempty"`
	Source      string                 `yaml:"source,omitempty"`
	Medium      string                 `yaml:"medium,omitempty"`
	CustomData  map[string]interface{} `yaml:"customData,omitempty"`
}
