package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/orderlake/etl/pkg/orders"
	laketesting "github.com/malbeclabs/orderlake/utils/pkg/testing"
)

const dataset = "\ufeffState,City,Location,Restaurant Name,Category,Dish Name,Price (INR),Rating,Rating Count,Order Date\n" +
	"Karnataka,Bengaluru,Koramangala,Truffles,Burgers,Classic Burger,50,4.4,120,05-03-2025\n" +
	"Karnataka,Bengaluru,Koramangala,Truffles,Burgers,Veg Burger,150,,,06-03-2025\n" +
	"Karnataka,Mysuru,Gokulam,MTR,South Indian,Masala Dosa,1000000,3.9,40,12-04-2025\n" +
	"Karnataka,Mysuru,Gokulam,MTR,South Indian,Masala Dosa,80,3.9,40,2024/03/05\n"

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(dataset), 0o644))
	return path
}

func testConfig(out io.Writer, src string) Config {
	return Config{
		Logger: laketesting.NewLogger(),
		Clock:  clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		Out:    out,
		Source: src,
	}
}

type output struct {
	RunID      string                   `json:"run_id"`
	Source     string                   `json:"source"`
	Validation orders.ValidationSummary `json:"validation"`
	Reports    struct {
		KPI struct {
			TotalOrders          int    `json:"total_orders"`
			TotalRevenueMillions string `json:"total_revenue_inr_million"`
		} `json:"kpi_summary"`
		SpendingBuckets []struct {
			Bucket      string `json:"bucket"`
			TotalOrders int    `json:"total_orders"`
		} `json:"spending_buckets"`
		TopCities []struct {
			City string `json:"city"`
		} `json:"top_cities"`
	} `json:"reports"`
}

func decode(t *testing.T, b []byte) output {
	t.Helper()
	var out output
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestOrderLake_App_ConfigValidate(t *testing.T) {
	t.Parallel()

	require.EqualError(t, (&Config{}).Validate(), "logger is required")
	require.EqualError(t, (&Config{Logger: laketesting.NewLogger()}).Validate(), "output writer is required")
	require.EqualError(t, (&Config{Logger: laketesting.NewLogger(), Out: io.Discard}).Validate(), "source is required")
}

func TestOrderLake_App_Run(t *testing.T) {
	t.Parallel()

	t.Run("local csv without sinks", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		src := writeDataset(t)
		require.NoError(t, Run(context.Background(), testConfig(&buf, src)))

		out := decode(t, buf.Bytes())
		require.NotEmpty(t, out.RunID)
		require.Equal(t, src, out.Source)
		require.Equal(t, 4, out.Validation.TotalRecords)
		require.Equal(t, 3, out.Validation.ValidRecords)
		require.Equal(t, 1, out.Validation.InvalidRecords)
		require.Equal(t, 1, out.Validation.Violations[orders.FieldOrderDate])
		require.Equal(t, 3, out.Reports.KPI.TotalOrders)
		require.Equal(t, "1.00", out.Reports.KPI.TotalRevenueMillions)
		require.Len(t, out.Reports.SpendingBuckets, 5)
		require.Equal(t, "Bengaluru", out.Reports.TopCities[0].City)
	})

	t.Run("s3 source", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		cfg := testConfig(&buf, "s3://datasets/orders.csv")
		cfg.S3 = &fakeS3{objects: map[string]string{"datasets/orders.csv": dataset}}
		require.NoError(t, Run(context.Background(), cfg))
		require.Equal(t, 3, decode(t, buf.Bytes()).Reports.KPI.TotalOrders)
	})

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := Run(context.Background(), testConfig(&buf, filepath.Join(t.TempDir(), "missing.csv")))
		require.ErrorIs(t, err, orders.ErrSourceUnavailable)
		require.Zero(t, buf.Len())
	})

	t.Run("pushes metrics when configured", func(t *testing.T) {
		t.Parallel()
		var (
			mu    sync.Mutex
			paths []string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.URL.Path)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		var buf bytes.Buffer
		cfg := testConfig(&buf, writeDataset(t))
		cfg.PushgatewayURL = srv.URL
		require.NoError(t, Run(context.Background(), cfg))

		out := decode(t, buf.Bytes())
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []string{"/metrics/job/orderlake/run_id/" + out.RunID}, paths)
	})
}
