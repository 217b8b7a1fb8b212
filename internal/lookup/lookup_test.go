package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIP struct {
	name  string
	fails int // calls that fail before the first success
	ip    string
	calls atomic.Int32
}

func (f *fakeIP) Name() string { return f.name }

func (f *fakeIP) PublicIP(context.Context) (string, error) {
	n := int(f.calls.Add(1))
	if n <= f.fails {
		return "", fmt.Errorf("attempt %d: i/o timeout", n)
	}
	return f.ip, nil
}

// fakeExit is an IP source that also reports Tor exits.
type fakeExit struct {
	fakeIP
	isTor bool
}

func (f *fakeExit) Check(ctx context.Context) (TorCheckResponse, error) {
	ip, err := f.PublicIP(ctx)
	if err != nil {
		return TorCheckResponse{}, err
	}
	return TorCheckResponse{IP: ip, IsTor: f.isTor}, nil
}

type fakeCountry struct {
	name    string
	country string
	err     error
	calls   int
	gotIP   string
}

func (f *fakeCountry) Name() string { return f.name }

func (f *fakeCountry) Country(_ context.Context, ip string) (string, error) {
	f.calls++
	f.gotIP = ip
	return f.country, f.err
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func textServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPrimarySucceedsOnLastAttempt(t *testing.T) {
	primary := &fakeIP{name: "primary", fails: 11, ip: "1.2.3.4"}
	fallback := &fakeIP{name: "fallback", ip: "9.9.9.9"}
	country := &fakeCountry{name: "country", country: "Testland"}
	rec := &sleepRecorder{}

	r := &Resolver{
		Primary:   primary,
		Fallback:  fallback,
		Countries: []CountrySource{country},
		Attempts:  12,
		Delay:     5 * time.Second,
		Sleep:     rec.sleep,
	}
	info := r.Resolve(context.Background())

	assert.Equal(t, "1.2.3.4", info.IP)
	assert.Equal(t, "primary", info.Source)
	assert.Equal(t, "Testland", info.Country)
	assert.Equal(t, "1.2.3.4", country.gotIP)
	assert.EqualValues(t, 12, primary.calls.Load())
	assert.Zero(t, fallback.calls.Load(), "fallback must not be consulted")
	require.Len(t, rec.delays, 11)
	for _, d := range rec.delays {
		assert.Equal(t, 5*time.Second, d)
	}
}

func TestFallbackAfterPrimaryExhausted(t *testing.T) {
	echo := textServer(t, http.StatusOK, "5.6.7.8\n")
	primary := &fakeIP{name: "primary", fails: 100}
	rec := &sleepRecorder{}

	r := &Resolver{
		Primary:  primary,
		Fallback: &PlainIP{URL: echo.URL, Client: echo.Client()},
		Attempts: 12,
		Sleep:    rec.sleep,
	}
	info := r.Resolve(context.Background())

	assert.Equal(t, "5.6.7.8", info.IP)
	assert.False(t, info.IsTor)
	assert.EqualValues(t, 12, primary.calls.Load())
	assert.Len(t, rec.delays, 11, "no delay after the final attempt")
}

func TestEverythingFailsYieldsSentinels(t *testing.T) {
	country := &fakeCountry{name: "country", country: "Testland"}
	r := &Resolver{
		Primary:   &fakeIP{name: "primary", fails: 100},
		Fallback:  &fakeIP{name: "fallback", fails: 100},
		Countries: []CountrySource{country},
		Attempts:  3,
		Sleep:     (&sleepRecorder{}).sleep,
	}
	info := r.Resolve(context.Background())

	assert.Equal(t, IPUnavailable, info.IP)
	assert.Equal(t, CountryUnknown, info.Country)
	assert.False(t, info.Resolved())
	assert.Zero(t, country.calls, "no country lookup without an address")
}

func TestCountryFallsThroughToGeo(t *testing.T) {
	var gotPath string
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, "error")
	}))
	defer plain.Close()
	geo := textServer(t, http.StatusOK, `{"status":"success","country":"Testland"}`)

	r := &Resolver{
		Primary: &fakeIP{name: "primary", ip: "1.2.3.4"},
		Countries: []CountrySource{
			&PlainCountry{URL: plain.URL + "/{ip}/country_name/", Client: plain.Client()},
			&GeoJSON{URL: geo.URL + "/json/{ip}", Client: geo.Client()},
		},
		Attempts: 1,
	}
	info := r.Resolve(context.Background())

	assert.Equal(t, "/1.2.3.4/country_name/", gotPath)
	assert.Equal(t, "Testland", info.Country)
}

func TestBothCountrySourcesFail(t *testing.T) {
	first := &fakeCountry{name: "plain", err: errors.New("timeout")}
	second := &fakeCountry{name: "geo", err: errors.New("status fail")}

	r := &Resolver{
		Primary:   &fakeIP{name: "primary", ip: "1.2.3.4"},
		Countries: []CountrySource{first, second},
		Attempts:  1,
	}
	info := r.Resolve(context.Background())

	assert.Equal(t, "1.2.3.4", info.IP)
	assert.Equal(t, CountryUnknown, info.Country)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestFirstCountrySourceWins(t *testing.T) {
	first := &fakeCountry{name: "plain", country: "Germany"}
	second := &fakeCountry{name: "geo", country: "Testland"}

	r := &Resolver{
		Primary:   &fakeIP{name: "primary", ip: "1.2.3.4"},
		Countries: []CountrySource{first, second},
		Attempts:  1,
	}
	assert.Equal(t, "Germany", r.Resolve(context.Background()).Country)
	assert.Zero(t, second.calls)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fakeIP{name: "primary", fails: 100}
	fallback := &fakeIP{name: "fallback", ip: "5.6.7.8"}
	r := &Resolver{Primary: primary, Fallback: fallback, Attempts: 12, Delay: time.Hour}

	info := r.Resolve(ctx)

	assert.EqualValues(t, 1, primary.calls.Load())
	assert.Equal(t, "5.6.7.8", info.IP)
}

func TestTorCheckSource(t *testing.T) {
	srv := textServer(t, http.StatusOK, `{"IsTor":true,"IP":"185.220.101.1"}`)
	r := &Resolver{
		Primary:  &TorCheck{URL: srv.URL, Client: srv.Client()},
		Attempts: 1,
	}
	info := r.Resolve(context.Background())

	assert.Equal(t, "185.220.101.1", info.IP)
	assert.True(t, info.IsTor)
	assert.Equal(t, srv.Listener.Addr().String(), info.Source)
}

func TestExitCheckerReportsTor(t *testing.T) {
	primary := &fakeExit{fakeIP: fakeIP{name: "exit", fails: 2, ip: "185.220.101.1"}, isTor: true}
	rec := &sleepRecorder{}
	r := &Resolver{Primary: primary, Attempts: 5, Sleep: rec.sleep}

	info := r.Resolve(context.Background())

	assert.Equal(t, "185.220.101.1", info.IP)
	assert.True(t, info.IsTor)
	assert.Equal(t, "exit", info.Source)
	assert.Len(t, rec.delays, 2)
}

func TestMalformedPayloadIsFollowedByDelay(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "<html>rate limited</html>")
	}))
	defer srv.Close()
	echo := textServer(t, http.StatusOK, "5.6.7.8")

	rec := &sleepRecorder{}
	r := &Resolver{
		Primary:  &TorCheck{URL: srv.URL, Client: srv.Client()},
		Fallback: &PlainIP{URL: echo.URL, Client: echo.Client()},
		Attempts: 3,
		Delay:    5 * time.Second,
		Sleep:    rec.sleep,
	}
	info := r.Resolve(context.Background())

	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, rec.delays)
	assert.Equal(t, "5.6.7.8", info.IP)
}

func TestMalformedErrorQuotesWholeRunes(t *testing.T) {
	srv := textServer(t, http.StatusOK, strings.Repeat("é", 100))
	_, err := (&PlainIP{URL: srv.URL, Client: srv.Client()}).PublicIP(context.Background())
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), "…")
}

func TestTorCheckMalformed(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not json", http.StatusOK, "<html>rate limited</html>"},
		{"missing ip", http.StatusOK, `{"IsTor":false}`},
		{"bad ip", http.StatusOK, `{"IsTor":false,"IP":"nope"}`},
		{"server error", http.StatusBadGateway, `{"IsTor":true,"IP":"1.2.3.4"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := textServer(t, tt.status, tt.body)
			src := &TorCheck{URL: srv.URL, Client: srv.Client()}
			_, err := src.PublicIP(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestPlainIPRejectsGarbage(t *testing.T) {
	srv := textServer(t, http.StatusOK, "<html>captive portal</html>")
	_, err := (&PlainIP{URL: srv.URL, Client: srv.Client()}).PublicIP(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPlainCountry(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"ok", http.StatusOK, "Netherlands\n", "Netherlands", false},
		{"empty", http.StatusOK, "  \n", "", true},
		{"error marker", http.StatusOK, `{"error": true, "reason": "RateLimited"}`, "", true},
		{"mixed case marker", http.StatusOK, "Undefined Error", "", true},
		{"rate limited", http.StatusTooManyRequests, "Netherlands", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := textServer(t, tt.status, tt.body)
			got, err := (&PlainCountry{URL: srv.URL + "/{ip}", Client: srv.Client()}).
				Country(context.Background(), "1.2.3.4")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeoJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"success", `{"status":"success","country":"Testland"}`, "Testland", false},
		{"fail status", `{"status":"fail","message":"private range"}`, "", true},
		{"empty country", `{"status":"success","country":""}`, "", true},
		{"not json", `oops`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := textServer(t, http.StatusOK, tt.body)
			got, err := (&GeoJSON{URL: srv.URL + "/json/{ip}", Client: srv.Client()}).
				Country(context.Background(), "1.2.3.4")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	c, err := NewHTTPClient(0, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.Timeout)

	c, err = NewHTTPClient(2*time.Second, "127.0.0.1:9050")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, c.Timeout)
}
