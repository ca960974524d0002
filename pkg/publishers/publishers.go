package publishers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-article-summarizer/pkg/cfgfile"
)

const (
	// Supported publisher types.
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeGCPPubSub = "gcp_pubsub"
	TypeHTTP      = "http"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// configFile represents the structure of the publishers configuration file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig represents a single publisher entry declared in config files.
type PublisherConfig struct {
	ID        string               `json:"id" yaml:"id"`
	Type      string               `json:"type" yaml:"type"`
	Enabled   *bool                `json:"enabled" yaml:"enabled"`
	SQS       *SQSPublisherConfig  `json:"sqs" yaml:"sqs"`
	SNS       *SNSPublisherConfig  `json:"sns" yaml:"sns"`
	GCPPubSub *GCPPubSubConfig     `json:"gcp_pubsub" yaml:"gcp_pubsub"`
	HTTP      *HTTPPublisherConfig `json:"http" yaml:"http"`
}

// AWSAccess holds optional connection overrides shared by the AWS publishers.
// Without static keys the default credential chain is used.
type AWSAccess struct {
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	AWSAccess `yaml:",inline"`

	QueueURL string `json:"uri" yaml:"uri"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	AWSAccess `yaml:",inline"`

	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
}

// GCPPubSubConfig holds Google Cloud Pub/Sub settings. Endpoint targets an
// emulator and disables authentication.
type GCPPubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

// HTTPPublisherConfig holds generic HTTP sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ConfigRegistry holds the publisher definitions read from a file. It is
// not modified after LoadRegistry returns.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]PublisherConfig
}

// LoadRegistry reads publisher definitions from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	var file configFile
	if err := cfgfile.Read(path, "publishers file", &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file lists no publishers")
	}

	reg := &ConfigRegistry{idx: make(map[string]PublisherConfig, len(file.Publishers))}
	for i, raw := range file.Publishers {
		cfg := raw.normalized()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.publishers = append(reg.publishers, cfg)
		reg.idx[cfg.ID] = cfg
	}
	return reg, nil
}

// normalized returns a copy with trimmed fields and defaults filled in.
// Nested blocks are copied so the caller's config is left as it was.
func (cfg PublisherConfig) normalized() PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}

	if cfg.SQS != nil {
		q := *cfg.SQS
		q.QueueURL = strings.TrimSpace(q.QueueURL)
		q.AWSAccess = q.AWSAccess.normalized()
		cfg.SQS = &q
	}
	if cfg.SNS != nil {
		n := *cfg.SNS
		n.TopicARN = strings.TrimSpace(n.TopicARN)
		n.AWSAccess = n.AWSAccess.normalized()
		cfg.SNS = &n
	}
	if cfg.GCPPubSub != nil {
		g := *cfg.GCPPubSub
		for _, f := range []*string{&g.ProjectID, &g.Topic, &g.CredentialsFile, &g.Endpoint} {
			*f = strings.TrimSpace(*f)
		}
		cfg.GCPPubSub = &g
	}
	if cfg.HTTP != nil {
		h := *cfg.HTTP
		h.URL = strings.TrimSpace(h.URL)
		if h.Method = strings.ToUpper(strings.TrimSpace(h.Method)); h.Method == "" {
			h.Method = httpDefaultMethod
		}
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		h.Headers = cleanHeaders(h.Headers)
		cfg.HTTP = &h
	}
	return cfg
}

func (a AWSAccess) normalized() AWSAccess {
	for _, f := range []*string{&a.Region, &a.Endpoint, &a.AccessKeyID, &a.SecretAccessKey} {
		*f = strings.TrimSpace(*f)
	}
	return a
}

// cleanHeaders drops headers whose name or value is blank.
func cleanHeaders(in map[string]string) map[string]string {
	var out map[string]string
	for k, v := range in {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(in))
		}
		out[k] = v
	}
	return out
}

// validate reports the first missing field required by the publisher type.
func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	missing := func(field string) error {
		return fmt.Errorf("%s is required for publisher %q", field, cfg.ID)
	}

	switch cfg.Type {
	case "":
		return missing("type")
	case TypeSQS:
		if cfg.SQS == nil {
			return missing("sqs block")
		}
		if cfg.SQS.QueueURL == "" {
			return missing("sqs.uri")
		}
		return cfg.SQS.AWSAccess.validate(TypeSQS, cfg.ID)
	case TypeSNS:
		if cfg.SNS == nil {
			return missing("sns block")
		}
		if cfg.SNS.TopicARN == "" {
			return missing("sns.topic_arn")
		}
		return cfg.SNS.AWSAccess.validate(TypeSNS, cfg.ID)
	case TypeGCPPubSub:
		switch {
		case cfg.GCPPubSub == nil:
			return missing("gcp_pubsub block")
		case cfg.GCPPubSub.ProjectID == "":
			return missing("gcp_pubsub.project_id")
		case cfg.GCPPubSub.Topic == "":
			return missing("gcp_pubsub.topic")
		}
	case TypeHTTP:
		if cfg.HTTP == nil {
			return missing("http block")
		}
		if cfg.HTTP.URL == "" {
			return missing("http.url")
		}
	}
	return nil
}

func (a AWSAccess) validate(kind, id string) error {
	if a.Region == "" {
		return fmt.Errorf("%s.region is required for publisher %q", kind, id)
	}
	if (a.AccessKeyID == "") != (a.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", kind, kind, id)
	}
	return nil
}

// ByID looks up a publisher by its id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	cfg, ok := r.idx[strings.TrimSpace(id)]
	return cfg, ok
}

// All returns every configured publisher in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.publishers...)
}

// Enabled returns the publishers not switched off with enabled: false.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}
	var out []PublisherConfig
	for _, cfg := range r.publishers {
		if cfg.IsEnabled() {
			out = append(out, cfg)
		}
	}
	return out
}

// IsEnabled reports the enabled flag, which defaults to true.
func (cfg PublisherConfig) IsEnabled() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}
