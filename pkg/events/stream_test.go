package events_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/buildtest/pkg/events"
)

func decode(t *testing.T, lines ...string) []string {
	t.Helper()

	rec := &events.Recorder{}
	stream := events.NewStream(rec)
	err := stream.Decode(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"))
	require.NoError(t, err)
	return rec.Events
}

func TestStream_PassFailSkip(t *testing.T) {
	t.Parallel()

	got := decode(t,
		`{"Action":"start","Package":"example.com/math"}`,
		`{"Action":"run","Package":"example.com/math","Test":"TestAdd"}`,
		`{"Action":"output","Package":"example.com/math","Test":"TestAdd","Output":"=== RUN   TestAdd\n"}`,
		`{"Action":"output","Package":"example.com/math","Test":"TestAdd","Output":"--- PASS: TestAdd (0.00s)\n"}`,
		`{"Action":"pass","Package":"example.com/math","Test":"TestAdd","Elapsed":0.01}`,
		`{"Action":"run","Package":"example.com/math","Test":"TestSub"}`,
		`{"Action":"output","Package":"example.com/math","Test":"TestSub","Output":"=== RUN   TestSub\n"}`,
		`{"Action":"output","Package":"example.com/math","Test":"TestSub","Output":"    math_test.go:12: expected 1 got 2\n"}`,
		`{"Action":"output","Package":"example.com/math","Test":"TestSub","Output":"--- FAIL: TestSub (0.00s)\n"}`,
		`{"Action":"fail","Package":"example.com/math","Test":"TestSub","Elapsed":0}`,
		`{"Action":"run","Package":"example.com/math","Test":"TestSkip"}`,
		`{"Action":"skip","Package":"example.com/math","Test":"TestSkip","Elapsed":0}`,
		`{"Action":"output","Package":"example.com/math","Output":"FAIL\n"}`,
		`{"Action":"fail","Package":"example.com/math","Elapsed":0.02}`,
	)

	assert.Equal(t, []string{
		"suite-start example.com/math",
		"test-pass TestAdd",
		"test-end TestAdd",
		"test-fail TestSub: math_test.go:12: expected 1 got 2",
		"test-end TestSub",
		"test-pending TestSkip",
		"test-end TestSkip",
		"suite-end example.com/math",
	}, got)
}

func TestStream_SubtestsBecomeSuites(t *testing.T) {
	t.Parallel()

	got := decode(t,
		`{"Action":"run","Package":"p","Test":"TestParent"}`,
		`{"Action":"run","Package":"p","Test":"TestParent/a"}`,
		`{"Action":"run","Package":"p","Test":"TestParent/b"}`,
		`{"Action":"pass","Package":"p","Test":"TestParent/a"}`,
		`{"Action":"output","Package":"p","Test":"TestParent/b","Output":"        b_test.go:9: boom\n"}`,
		`{"Action":"fail","Package":"p","Test":"TestParent/b"}`,
		`{"Action":"fail","Package":"p","Test":"TestParent"}`,
		`{"Action":"fail","Package":"p"}`,
	)

	assert.Equal(t, []string{
		"suite-start p",
		"suite-start TestParent",
		"test-pass a",
		"test-end a",
		"test-fail b: b_test.go:9: boom",
		"test-end b",
		"suite-end TestParent",
		"suite-end p",
	}, got)
}

func TestStream_ParentFailureWithPassingChildren(t *testing.T) {
	t.Parallel()

	got := decode(t,
		`{"Action":"run","Package":"p","Test":"TestParent"}`,
		`{"Action":"run","Package":"p","Test":"TestParent/a"}`,
		`{"Action":"pass","Package":"p","Test":"TestParent/a"}`,
		`{"Action":"output","Package":"p","Test":"TestParent","Output":"    p_test.go:20: cleanup failed\n"}`,
		`{"Action":"fail","Package":"p","Test":"TestParent"}`,
		`{"Action":"fail","Package":"p"}`,
	)

	assert.Equal(t, []string{
		"suite-start p",
		"suite-start TestParent",
		"test-pass a",
		"test-end a",
		"test-fail TestParent: p_test.go:20: cleanup failed",
		"test-end TestParent",
		"suite-end TestParent",
		"suite-end p",
	}, got)
}

func TestStream_BuildFailure(t *testing.T) {
	t.Parallel()

	got := decode(t,
		`{"ImportPath":"example.com/broken [example.com/broken.test]","Action":"build-output","Output":"# example.com/broken\n"}`,
		`{"ImportPath":"example.com/broken [example.com/broken.test]","Action":"build-output","Output":"broken.go:3:1: syntax error\n"}`,
		`{"ImportPath":"example.com/broken [example.com/broken.test]","Action":"build-fail"}`,
		`{"Action":"start","Package":"example.com/broken"}`,
		`{"Action":"output","Package":"example.com/broken","Output":"FAIL\texample.com/broken [build failed]\n"}`,
		`{"Action":"fail","Package":"example.com/broken","FailedBuild":"example.com/broken [example.com/broken.test]"}`,
	)

	assert.Equal(t, []string{
		"suite-start example.com/broken",
		"test-fail [package]: # example.com/broken\nbroken.go:3:1: syntax error",
		"test-end [package]",
		"suite-end example.com/broken",
	}, got)
}

func TestStream_NoTestFilesIsSilent(t *testing.T) {
	t.Parallel()

	got := decode(t,
		`{"Action":"output","Package":"example.com/empty","Output":"?   \texample.com/empty\t[no test files]\n"}`,
		`{"Action":"skip","Package":"example.com/empty"}`,
	)

	assert.Empty(t, got)
}

func TestStream_TruncatedRunFailsOpenTests(t *testing.T) {
	t.Parallel()

	got := decode(t,
		`{"Action":"run","Package":"p","Test":"TestHang"}`,
		`{"Action":"output","Package":"p","Test":"TestHang","Output":"    waiting\n"}`,
	)

	assert.Equal(t, []string{
		"suite-start p",
		"test-fail TestHang: test did not complete\nwaiting",
		"test-end TestHang",
		"suite-end p",
	}, got)
}

func TestStream_IgnoresStrayLines(t *testing.T) {
	t.Parallel()

	got := decode(t,
		`go: downloading example.com/dep v1.0.0`,
		`{not json`,
		`{"Action":"run","Package":"p","Test":"TestA"}`,
		`{"Action":"pass","Package":"p","Test":"TestA"}`,
		`{"Action":"pass","Package":"p"}`,
	)

	assert.Equal(t, []string{
		"suite-start p",
		"test-pass TestA",
		"test-end TestA",
		"suite-end p",
	}, got)
}

type failingListener struct {
	events.Recorder
}

var errSink = errors.New("sink broken")

func (f *failingListener) SuiteStart(events.Suite) error {
	return errSink
}

func TestStream_PropagatesListenerErrors(t *testing.T) {
	t.Parallel()

	stream := events.NewStream(&failingListener{})
	input := `{"Action":"run","Package":"p","Test":"TestA"}` + "\n" +
		`{"Action":"pass","Package":"p","Test":"TestA"}` + "\n" +
		`{"Action":"pass","Package":"p"}` + "\n"

	err := stream.Decode(context.Background(), strings.NewReader(input))
	require.ErrorIs(t, err, errSink)
}

func TestStream_HonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := events.NewStream(&events.Recorder{})
	err := stream.Decode(ctx, strings.NewReader(`{"Action":"run","Package":"p","Test":"TestA"}`+"\n"))
	require.ErrorIs(t, err, context.Canceled)
}
