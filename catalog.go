package airport

import (
	"github.com/hugr-lab/airport-openapi/connector"
	"github.com/hugr-lab/airport-openapi/remote"
	"github.com/hugr-lab/airport-openapi/restcatalog"
)

// NewRemoteCatalog connects a catalog to the REST service described by
// remoteCfg. The returned func releases the client and the metadata cache.
func NewRemoteCatalog(remoteCfg remote.Config, cfg connector.Config) (*restcatalog.Catalog, func(), error) {
	client, err := remote.New(remoteCfg)
	if err != nil {
		return nil, nil, err
	}
	cat, err := restcatalog.New(client, cfg)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return cat, func() {
		cat.Close()
		client.Close()
	}, nil
}
