package links

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
)

// Config holds the repository addressing settings
type Config struct {
	// BaseURL is the public root of the repository, e.g. http://localhost:8000
	BaseURL string
	// FileBases maps a storage scheme to the public URL prefix its files are served from
	FileBases map[string]string
	// FedoraScheme is the storage scheme backed by the Fedora repository
	FedoraScheme string
	// FedoraRoot is the Fedora REST root; when set it is the event target
	FedoraRoot string
}

// Linker builds absolute URLs for entities, files and callback routes
type Linker struct {
	base       *url.URL
	fileBases  map[string]string
	fedora     string
	root       string
	// root with a trailing slash, the prefix for Fedora file URIs
	fedoraRoot string
}

// New creates a Linker
func New(cfg Config) (*Linker, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute: %q", cfg.BaseURL)
	}

	bases := make(map[string]string, len(cfg.FileBases))
	for scheme, prefix := range cfg.FileBases {
		bases[scheme] = strings.TrimRight(prefix, "/") + "/"
	}

	var fedoraRoot string
	if cfg.FedoraRoot != "" {
		fedoraRoot = strings.TrimRight(cfg.FedoraRoot, "/") + "/"
	}

	return &Linker{
		base:       base,
		fileBases:  bases,
		fedora:     cfg.FedoraScheme,
		root:       cfg.FedoraRoot,
		fedoraRoot: fedoraRoot,
	}, nil
}

func (l *Linker) join(elems ...string) string {
	return l.base.JoinPath(elems...).String()
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

// EntityURL returns the canonical HTML page of an entity
func (l *Linker) EntityURL(entityType domain.EntityType, entityID int64) string {
	switch entityType {
	case domain.EntityTypeTaxonomyTerm:
		return l.join("taxonomy", "term", id(entityID))
	default:
		return l.join(string(entityType), id(entityID))
	}
}

// RestURL returns the serialized representation of an entity in format
func (l *Linker) RestURL(entityType domain.EntityType, entityID int64, format string) string {
	u := l.EntityURL(entityType, entityID)
	if format == "" {
		return u
	}
	return u + "?_format=" + url.QueryEscape(format)
}

// DownloadURL returns the public URL a worker can fetch the file from
func (l *Linker) DownloadURL(f *domain.File) string {
	scheme, path, ok := splitURI(f.URI)
	if !ok {
		return f.URI
	}
	if prefix, found := l.fileBases[scheme]; found {
		return prefix + path
	}
	return l.join("_flysystem", scheme) + "/" + path
}

// MediaSourcePutToNode is the callback a worker PUTs a new derivative media to
func (l *Linker) MediaSourcePutToNode(nodeID int64, mediaType string, termID int64) string {
	return l.join("node", id(nodeID), "media", mediaType, id(termID))
}

// AttachFileToMedia is the callback a worker PUTs a file into an existing media field to
func (l *Linker) AttachFileToMedia(mediaID int64, destinationField string) string {
	return l.join("media", id(mediaID), "attach", destinationField)
}

// Target returns the repository root attached to every event, if configured
func (l *Linker) Target() string {
	return l.root
}

// FedoraURI maps a file stored on the Fedora-backed scheme to its repository URI
func (l *Linker) FedoraURI(fileURI string) (string, bool) {
	if l.fedora == "" || l.fedoraRoot == "" {
		return "", false
	}
	scheme, _, ok := splitURI(fileURI)
	if !ok || scheme != l.fedora {
		return "", false
	}

	uri := strings.Replace(fileURI, scheme+":///", scheme+"://", 1)
	return strings.Replace(uri, scheme+"://", l.fedoraRoot, 1), true
}

// splitURI splits "scheme://path" into its parts
func splitURI(uri string) (scheme, path string, ok bool) {
	scheme, path, ok = strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return "", "", false
	}
	return scheme, strings.TrimLeft(path, "/"), true
}
