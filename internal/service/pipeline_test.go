package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nutrinom/nutrinom-go/internal/adapters/backend"
	"github.com/nutrinom/nutrinom-go/internal/domain/barcode"
	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	"github.com/nutrinom/nutrinom-go/internal/mocks"
	"github.com/nutrinom/nutrinom-go/internal/mocks/fakes"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
	"github.com/nutrinom/nutrinom-go/internal/ports"
	"github.com/nutrinom/nutrinom-go/internal/testutil/backendtest"
)

type pipelineFixture struct {
	server    *backendtest.Server
	scans     *ScanState
	navigator *fakes.Navigator
	reporter  *fakes.Reporter
	metrics   *statsd.Recorder
	pipeline  *Pipeline
}

// newPipelineFixture wires the pipeline against a fake backend the same way
// the application does.
func newPipelineFixture(t *testing.T, session SessionReader) *pipelineFixture {
	t.Helper()
	srv := backendtest.New(t)
	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	f := &pipelineFixture{
		server:    srv,
		navigator: &fakes.Navigator{},
		reporter:  &fakes.Reporter{},
		metrics:   &statsd.Recorder{},
	}
	f.scans = NewScanState(ScanStateOptions{
		Session:  session,
		Recorder: client,
		Deps: ScanStateDeps{
			Enricher: client,
			Reporter: f.reporter,
			Metrics:  f.metrics,
		},
	})
	f.pipeline = NewPipeline(PipelineOptions{
		Lookup:    NewLookupService(LookupServiceOptions{Source: client}),
		Scans:     f.scans,
		Navigator: f.navigator,
		Deps: PipelineDeps{
			Session:  session,
			Reporter: f.reporter,
			Metrics:  f.metrics,
		},
	})
	return f
}

func TestPipeline_UnknownBarcodeShowsNotFound(t *testing.T) {
	f := newPipelineFixture(t, signedIn())

	cycle, err := f.pipeline.HandleCode(ctxWithTimeout(t), "9999999999999")
	require.NoError(t, err)
	f.pipeline.Wait()

	assert.Equal(t, scan.StageFailed, cycle.Stage)
	assert.Equal(t, scan.FailureNotFound, cycle.Reason)
	assert.Equal(t, []ports.Route{ports.RouteResult}, f.navigator.Routes())

	st := f.scans.Snapshot()
	assert.Nil(t, st.Record)
	assert.Equal(t, scan.FailureNotFound, st.FailureKind())
	assert.Zero(t, f.server.Count(http.MethodPost, "/product/add"), "nothing is saved for an unknown product")

	require.Len(t, f.reporter.Errors(), 1)
	assert.Equal(t, "lookup", f.reporter.Errors()[0].Tags["operation"])
	assert.Equal(t, int64(1), f.metrics.Total("scan.cycle", map[string]string{"stage": "failed", "reason": "not_found"}))
}

func TestPipeline_ServerErrorAndOutage(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		f := newPipelineFixture(t, signedIn())
		f.server.SetFault(backendtest.RouteLookup, backendtest.Fault{Status: http.StatusBadGateway, Body: `{"message":"upstream down"}`})

		cycle, err := f.pipeline.HandleCode(ctxWithTimeout(t), validCode)
		require.NoError(t, err)
		assert.Equal(t, scan.FailureServerError, cycle.Reason)
		assert.Equal(t, scan.FailureServerError, f.scans.Snapshot().FailureKind())
	})

	t.Run("unreachable backend", func(t *testing.T) {
		f := newPipelineFixture(t, signedIn())
		f.server.Close()

		cycle, err := f.pipeline.HandleCode(ctxWithTimeout(t), validCode)
		require.NoError(t, err)
		assert.Equal(t, scan.FailureNetworkError, cycle.Reason)
		assert.Equal(t, ports.RouteResult, f.navigator.Last())
	})
}

func TestPipeline_SuccessSavesInBackground(t *testing.T) {
	f := newPipelineFixture(t, signedIn())
	f.server.AddProduct(validCode, "p-1", validDoc)

	cycle, err := f.pipeline.HandleCode(ctxWithTimeout(t), validCode)
	require.NoError(t, err)
	assert.Equal(t, scan.StageSaved, cycle.Stage)
	assert.Equal(t, ports.RouteResult, f.navigator.Last())

	f.pipeline.Wait()
	st := f.scans.Snapshot()
	assert.Equal(t, scan.PhaseReady, st.Phase)
	require.NotNil(t, st.Record)
	assert.Equal(t, "Balanced snack with moderate sugar.", st.Record.Analysis)
	assert.Equal(t, 1, f.server.Count(http.MethodPost, "/product/add"))
	assert.Equal(t, f.pipeline.Current().ID, cycle.ID)
}

func TestPipeline_NavigatesBeforeSaveCompletes(t *testing.T) {
	f := newPipelineFixture(t, signedIn())
	f.server.AddProduct(validCode, "p-1", validDoc)
	f.server.SetFault(backendtest.RouteAddScan, backendtest.Fault{Delay: 300 * time.Millisecond})

	_, err := f.pipeline.HandleCode(ctxWithTimeout(t), validCode)
	require.NoError(t, err)

	assert.Equal(t, ports.RouteResult, f.navigator.Last())
	waitFor(t, func() bool {
		st := f.scans.Snapshot()
		return st.IsLoading() && st.Record != nil
	})

	f.pipeline.Wait()
	assert.False(t, f.scans.Snapshot().IsLoading())
}

func TestPipeline_SignedOutScanShowsAuthRequired(t *testing.T) {
	f := newPipelineFixture(t, staticSession{})
	f.server.AddProduct(validCode, "p-1", validDoc)

	cycle, err := f.pipeline.HandleCode(ctxWithTimeout(t), validCode)
	require.NoError(t, err)
	f.pipeline.Wait()

	assert.Equal(t, scan.StageFailed, cycle.Stage)
	assert.Equal(t, scan.FailureAuthRequired, cycle.Reason)
	assert.Equal(t, scan.FailureAuthRequired, f.scans.Snapshot().FailureKind())
	assert.Zero(t, f.server.Count(http.MethodPost, "/product/add"))
	assert.Zero(t, f.server.Count(http.MethodPost, "/api/llm"))

	assert.Equal(t, int64(1), f.metrics.Total("scan.cycle", map[string]string{"stage": "failed", "reason": "auth_required"}))
	assert.Zero(t, f.metrics.Total("scan.cycle", map[string]string{"stage": "saved"}))
	for _, c := range f.reporter.Breadcrumbs() {
		assert.NotEqual(t, "Scan saved", c.Message)
	}
	assert.Equal(t, []ports.Route{ports.RouteResult}, f.navigator.Routes())
}

func TestPipeline_RetryRearmsScanner(t *testing.T) {
	f := newPipelineFixture(t, signedIn())
	f.server.AddProduct(validCode, "p-1", validDoc)

	var pipe *Pipeline
	scanner := NewScanner(ScannerOptions{
		Camera: readyCamera(),
		OnCode: func(ctx context.Context, code string) { _, _ = pipe.HandleCode(ctx, code) },
	})
	pipe = f.pipeline
	pipe.AttachScanner(scanner)

	scanner.HandleDetections(ctxWithTimeout(t), []barcode.Detection{{Code: validCode}})
	pipe.Wait()
	require.False(t, scanner.Armed())

	pipe.Retry(context.Background())

	assert.True(t, scanner.Armed())
	assert.True(t, f.scans.Snapshot().IsEmpty())
	assert.Equal(t, scan.StageIdle, pipe.Current().Stage)
	assert.Equal(t, []ports.Route{ports.RouteResult, ports.RouteScanner}, f.navigator.Routes())
}

func TestPipeline_NewerCycleSupersedesOlder(t *testing.T) {
	ctrl := gomock.NewController(t)
	lookup := mocks.NewMockProductLookup(ctrl)
	recorder := mocks.NewMockScanRecorder(ctrl)
	navigator := &fakes.Navigator{}
	scans := NewScanState(ScanStateOptions{Session: signedIn(), Recorder: recorder})
	pipe := NewPipeline(PipelineOptions{
		Lookup:    NewLookupService(LookupServiceOptions{Source: lookup}),
		Scans:     scans,
		Navigator: navigator,
	})

	slowEntered := make(chan struct{})
	releaseSlow := make(chan struct{})
	lookup.EXPECT().
		LookupProduct(gomock.Any(), validCode).
		DoAndReturn(func(context.Context, string) (*product.Document, error) {
			close(slowEntered)
			<-releaseSlow
			return mustDoc(t, validDoc), nil
		})
	lookup.EXPECT().LookupProduct(gomock.Any(), "5000000000001").Return(mustDoc(t, noNutritionDoc), nil)
	recorder.EXPECT().
		AddScan(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in ports.AddScanInput) error {
			assert.Equal(t, "5000000000001", in.Barcode)
			return nil
		}).
		Times(1)

	type result struct {
		cycle scan.Cycle
		err   error
	}
	slow := make(chan result, 1)
	go func() {
		c, err := pipe.HandleCode(context.Background(), validCode)
		slow <- result{c, err}
	}()
	<-slowEntered

	fast, err := pipe.HandleCode(context.Background(), "5000000000001")
	require.NoError(t, err)
	assert.Equal(t, scan.StageSaved, fast.Stage)

	close(releaseSlow)
	r := <-slow
	require.ErrorIs(t, r.err, ErrSuperseded)
	pipe.Wait()

	assert.Equal(t, "5000000000001", scans.Snapshot().Record.Code)
	assert.Equal(t, fast.ID, pipe.Current().ID)
	assert.Equal(t, []ports.Route{ports.RouteResult}, navigator.Routes())
}
