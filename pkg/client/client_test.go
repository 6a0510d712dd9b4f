package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/taigrr/voxlab/pkg/api"
	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/server"
	"github.com/taigrr/voxlab/pkg/store"
	"github.com/taigrr/voxlab/pkg/volume"
)

func init() {
	logging.SetLogMode(logging.SilentMode)
}

var testFields = map[string]*volume.Field{
	"brain": volume.Gradient(volume.Dims{X: 40, Y: 32, Z: 24}),
	"head":  volume.Sphere(volume.Dims{X: 8, Y: 8, Z: 8}),
}

func testRead(path string) (*volume.Field, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	f, ok := testFields[store.VolumeID(path)]
	if !ok {
		return nil, store.ErrDatasetMissing
	}
	return f, nil
}

// newTestClient serves testFields through a real server and returns a
// client pointed at it.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	for id := range testFields {
		if err := os.WriteFile(filepath.Join(dir, id+".nc"), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s, err := store.Open(context.Background(), dir, store.Options{PreviewSize: 16, Read: testRead})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(server.New(s, server.DefaultConfig().Server))
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func TestVolumes(t *testing.T) {
	c := newTestClient(t)
	vols, err := c.Volumes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, v := range vols {
		ids = append(ids, v.ID)
	}
	if !slices.Equal(ids, []string{"brain", "head"}) {
		t.Errorf("ids = %v, want [brain head]", ids)
	}

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "healthy" || len(h.AvailableSamples) != 2 {
		t.Errorf("Health() = %+v", h)
	}
}

func TestInfo(t *testing.T) {
	c := newTestClient(t)
	info, err := c.Info(context.Background(), "brain")
	if err != nil {
		t.Fatal(err)
	}
	if info.Dims() != testFields["brain"].Dims {
		t.Errorf("Dims() = %v, want %v", info.Dims(), testFields["brain"].Dims)
	}
	if info.Range() != testFields["brain"].Range {
		t.Errorf("Range() = %v, want %v", info.Range(), testFields["brain"].Range)
	}
}

func TestFullAndLow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	info, err := c.Info(ctx, "head")
	if err != nil {
		t.Fatal(err)
	}

	full, err := c.Full(ctx, info)
	if err != nil {
		t.Fatal(err)
	}
	want := testFields["head"]
	if full.Dims != want.Dims || !slices.Equal(full.Data, want.Data) || full.Range != want.Range {
		t.Error("Full() does not reproduce the served field")
	}

	info, err = c.Info(ctx, "brain")
	if err != nil {
		t.Fatal(err)
	}
	low, err := c.Low(ctx, info)
	if err != nil {
		t.Fatal(err)
	}
	if low.Dims != info.LowResDims() {
		t.Errorf("Low() dims = %v, want %v", low.Dims, info.LowResDims())
	}
	if low.Range != info.Range() {
		t.Errorf("Low() range = %v, want the native range %v", low.Range, info.Range())
	}
}

func TestAtResolution(t *testing.T) {
	c := newTestClient(t)
	tests := []struct {
		res  int
		want volume.Dims
	}{
		{16, volume.Dims{X: 20, Y: 16, Z: 12}},
		{1, volume.Dims{X: 20, Y: 16, Z: 12}},
		{20, volume.Dims{X: 20, Y: 16, Z: 12}},
		{100000, volume.Dims{X: 40, Y: 32, Z: 24}},
	}
	for _, tt := range tests {
		f, err := c.AtResolution(context.Background(), "brain", tt.res)
		if err != nil {
			t.Fatalf("AtResolution(%d): %v", tt.res, err)
		}
		if f.Dims != tt.want {
			t.Errorf("AtResolution(%d) dims = %v, want %v", tt.res, f.Dims, tt.want)
		}
		if f.Range != testFields["brain"].Range {
			t.Errorf("AtResolution(%d) range = %v, want the native range", tt.res, f.Range)
		}
	}
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	_, err := c.Full(ctx, api.VolumeInfo{ID: "unknown-id", Dimensions: [3]int{1, 1, 1}})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %q, want the status and the server's message", err)
	}
	if _, err := c.Info(ctx, "unknown-id"); !errors.Is(err, ErrNetwork) {
		t.Errorf("Info err = %v, want ErrNetwork", err)
	}
	if _, err := c.AtResolution(ctx, "unknown-id", 32); !errors.Is(err, ErrNetwork) {
		t.Errorf("AtResolution err = %v, want ErrNetwork", err)
	}
}

func TestParseErrors(t *testing.T) {
	info := api.VolumeInfo{ID: "v", Dimensions: [3]int{2, 2, 2}, ValueRange: [2]float32{0, 1}}
	tests := []struct {
		name    string
		handler http.HandlerFunc
		call    func(*Client) error
	}{
		{
			name: "bad list JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{volumes"))
			},
			call: func(c *Client) error {
				_, err := c.Volumes(context.Background())
				return err
			},
		},
		{
			name: "short payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(make([]byte, 4*7))
			},
			call: func(c *Client) error {
				_, err := c.Full(context.Background(), info)
				return err
			},
		},
		{
			name: "missing dims header",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/info") {
					w.Write([]byte(`{"id":"v","dimensions":[2,2,2],"value_range":[0,1]}`))
					return
				}
				w.Write(make([]byte, 4*8))
			},
			call: func(c *Client) error {
				_, err := c.AtResolution(context.Background(), "v", 16)
				return err
			},
		},
		{
			name: "header disagrees with payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/info") {
					w.Write([]byte(`{"id":"v","dimensions":[2,2,2],"value_range":[0,1]}`))
					return
				}
				w.Header().Set(api.DimsHeader, "3,2,2")
				w.Write(make([]byte, 4*8))
			},
			call: func(c *Client) error {
				_, err := c.AtResolution(context.Background(), "v", 16)
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()
			err := tt.call(New(ts.URL))
			if !errors.Is(err, ErrParse) {
				t.Errorf("err = %v, want ErrParse", err)
			}
		})
	}
}

func TestNetworkDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(url).Volumes(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Volumes(context.Background())
	if !errors.Is(err, ErrNetwork) || !strings.Contains(err.Error(), "502") {
		t.Errorf("err = %v, want ErrNetwork with the status", err)
	}
}

func TestContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := New(ts.URL).Volumes(ctx)
	if !errors.Is(err, ErrNetwork) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want ErrNetwork wrapping the deadline", err)
	}
}
