package helpers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// NewESClient creates an Elasticsearch client for the user index. Basic auth
// is used when username is set.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	if len(addrs) == 0 {
		return nil, errors.New("elasticsearch: no addresses configured")
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addrs,
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	})
}

// PingES reports whether the cluster answers within ctx.
func PingES(ctx context.Context, es *elasticsearch.Client) error {
	res, err := es.Ping(es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: ping: %s", res.Status())
	}
	return nil
}
