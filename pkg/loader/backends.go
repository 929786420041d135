package loader

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/AOShei/pdf-viewer/pkg/observability"
	"github.com/AOShei/pdf-viewer/pkg/registry"
	"github.com/AOShei/pdf-viewer/pkg/viewer"
)

// Options are shared by every backend.
type Options struct {
	Client   *http.Client
	MaxBytes int64
	Logger   observability.Logger
}

// Factory builds a DocumentSource.
type Factory func(Options) viewer.DocumentSource

var backends = registry.New[Factory]()

func init() {
	Register("native", func(o Options) viewer.DocumentSource {
		return &Native{Client: o.Client, MaxBytes: o.MaxBytes, Logger: o.Logger}
	})
}

// Register makes a backend available under name. The first registration
// of a name wins.
func Register(name string, f Factory) bool {
	return backends.DefineIfAbsent(name, f)
}

// Backends lists the registered backend names.
func Backends() []string {
	return backends.Names()
}

// New returns the DocumentSource registered under name.
func New(name string, opts Options) (viewer.DocumentSource, error) {
	f, ok := backends.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(Backends(), ", "))
	}
	return f(opts), nil
}
