package interceptor

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/server/httpserver"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
)

// CountryReader looks up the country of an IP. *geoip2.Reader
// implements it.
type CountryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
}

// GeoFilter rejects peers whose country is on the deny list. Lookup
// failures and private addresses are let through.
type GeoFilter struct {
	reader CountryReader
	deny   map[string]struct{}
	mapper *domain.Mapper
	closer func() error
}

// OpenGeoFilter opens a MaxMind country database.
func OpenGeoFilter(dbPath string, denyCountries []string, m *domain.Mapper) (*GeoFilter, error) {
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	f := NewGeoFilter(reader, denyCountries, m)
	f.closer = reader.Close
	return f, nil
}

// NewGeoFilter creates a filter over an existing reader.
func NewGeoFilter(reader CountryReader, denyCountries []string, m *domain.Mapper) *GeoFilter {
	deny := make(map[string]struct{}, len(denyCountries))
	for _, c := range denyCountries {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			deny[c] = struct{}{}
		}
	}
	return &GeoFilter{reader: reader, deny: deny, mapper: m}
}

// CountryOf returns the ISO code for ip, or "" when unknown.
func (f *GeoFilter) CountryOf(ip net.IP) string {
	record, err := f.reader.Country(ip)
	if err != nil || record == nil {
		return ""
	}
	return record.Country.IsoCode
}

// Intercept implements httpserver.Interceptor.
func (f *GeoFilter) Intercept(ctx context.Context, req *httpserver.RequestInfo) (httpserver.Result, error) {
	if len(f.deny) == 0 {
		return httpserver.Continue(), nil
	}
	addr, ok := peerAddr(req.Peer)
	if !ok || addr.IsLoopback() || addr.IsPrivate() {
		return httpserver.Continue(), nil
	}

	country := f.CountryOf(net.IP(addr.AsSlice()))
	if _, denied := f.deny[country]; !denied {
		return httpserver.Continue(), nil
	}

	logger.L(ctx).Info("request denied by geo filter", "peer", req.Peer, "country", country)
	return reject(f.mapper, domain.New(domain.KindForbidden, "region not allowed"), nil), nil
}

// Close releases the database.
func (f *GeoFilter) Close() error {
	if f.closer != nil {
		return f.closer()
	}
	return nil
}
