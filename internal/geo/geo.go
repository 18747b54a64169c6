package geo

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
)

type Result struct {
	Country     string
	CountryName string
}

type Reader struct {
	db *maxminddb.Reader
}

// Open opens a MaxMind country or city .mmdb file. Returns a no-op Reader if
// path is empty.
func Open(path string) (*Reader, error) {
	if path == "" {
		return &Reader{}, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() {
	if r != nil && r.db != nil {
		r.db.Close()
	}
}

// Enabled reports whether lookups can return data.
func (r *Reader) Enabled() bool {
	return r != nil && r.db != nil
}

// Lookup resolves an IP to its country. Private and unparseable addresses
// return an empty Result.
func (r *Reader) Lookup(ipStr string) Result {
	if !r.Enabled() {
		return Result{}
	}
	ip := net.ParseIP(ipStr)
	if ip == nil || ip.IsPrivate() || ip.IsLoopback() {
		return Result{}
	}

	var record struct {
		Country struct {
			ISOCode string            `maxminddb:"iso_code"`
			Names   map[string]string `maxminddb:"names"`
		} `maxminddb:"country"`
	}
	if err := r.db.Lookup(ip, &record); err != nil {
		return Result{}
	}
	return Result{
		Country:     record.Country.ISOCode,
		CountryName: record.Country.Names["en"],
	}
}
