package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

type stubProvider struct {
	name      string
	available bool
	results   []Result
	err       error
	calls     int
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return s.available }
func (s *stubProvider) Search(context.Context, Query) ([]Result, error) {
	s.calls++
	return s.results, s.err
}

func TestLocal_FindsByName(t *testing.T) {
	l, err := NewLocal(catalog.MustDefault())
	require.NoError(t, err)
	defer l.Close()

	got, err := l.Search(context.Background(), Query{Text: "SCAMPER"})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "scamper", got[0].ID)
	assert.Equal(t, catalog.Creative, got[0].Category)
	assert.Greater(t, got[0].Score, 0.0)
}

func TestLocal_Filters(t *testing.T) {
	l, err := NewLocal(catalog.MustDefault())
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	got, err := l.Search(ctx, Query{Text: "swot", Category: catalog.Strategic})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "swot", got[0].ID)

	got, err = l.Search(ctx, Query{Text: "swot", Category: catalog.Creative})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = l.Search(ctx, Query{Text: "  "})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChain_FallsThrough(t *testing.T) {
	failing := &stubProvider{name: "remote", available: true, err: errors.New("down")}
	empty := &stubProvider{name: "empty", available: true}
	local := &stubProvider{name: "local", available: true, results: []Result{{ID: "swot"}}}
	off := &stubProvider{name: "off"}

	c := NewChain(nil, off, failing, empty, local)

	got, err := c.Search(context.Background(), Query{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, []Result{{ID: "swot"}}, got)
	assert.Equal(t, 0, off.calls)
	assert.Equal(t, "chain(remote,empty,local)", c.Name())
}

func TestChain_AllFail(t *testing.T) {
	c := NewChain(nil, &stubProvider{name: "a", available: true, err: errors.New("boom")})

	_, err := c.Search(context.Background(), Query{})
	assert.Error(t, err)

	assert.False(t, NewChain(nil, Disabled{}).Available())
}

func TestSafe(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, Safe(ctx, nil, Query{}, nil))
	assert.Nil(t, Safe(ctx, Disabled{}, Query{}, nil))
	assert.Nil(t, Safe(ctx, &stubProvider{available: true, err: errors.New("x")}, Query{}, nil))

	ok := &stubProvider{available: true, results: []Result{{ID: "a"}}}
	assert.Len(t, Safe(ctx, ok, Query{}, nil), 1)
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	next := &stubProvider{name: "n", available: true, results: []Result{{ID: "a"}}}
	c := NewCached(next, 2)

	for i := 0; i < 3; i++ {
		got, err := c.Search(ctx, Query{Text: "same"})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, c.Len())

	next.results = nil
	_, err := c.Search(ctx, Query{Text: "other"})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len(), "empty results are not cached")

	next.err = errors.New("down")
	_, err = c.Search(ctx, Query{Text: "third"})
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())
}

type fixedEmbedder struct {
	vec []float64
	err error
}

func (f fixedEmbedder) Embed(context.Context, string) ([]float64, error) {
	return f.vec, f.err
}

func TestSupabase_RPC(t *testing.T) {
	var got rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/search_thinking_tools", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"swot","title":"SWOT","category":"strategic","similarity":0.81234,"related_methods":["porter_five_forces"]}]`))
	}))
	defer srv.Close()

	s := NewSupabase(srv.URL+"/", "secret", fixedEmbedder{vec: []float64{0.1, 0.2}})
	require.True(t, s.Available())

	res, err := s.Search(context.Background(), Query{Text: "경쟁 분석", Category: catalog.Strategic, Limit: 3})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "swot", res[0].ID)
	assert.Equal(t, 0.812, res[0].Score)
	assert.Equal(t, []string{"porter_five_forces"}, res[0].Related)

	assert.Equal(t, []float64{0.1, 0.2}, got.QueryEmbedding)
	assert.Equal(t, 3, got.MatchCount)
	assert.Equal(t, DefaultThreshold, got.MatchThreshold)
	require.NotNil(t, got.FilterCategory)
	assert.Equal(t, "strategic", *got.FilterCategory)
	assert.Nil(t, got.FilterDifficulty)
}

func TestSupabase_CanonicalisesIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"jobs-to-be-done","title":"JTBD","category":"product","similarity":0.7,
			"related_methods":["design-thinking"],"complementary_methods":["Five-Whys"]}]`))
	}))
	defer srv.Close()

	res, err := NewSupabase(srv.URL, "k", fixedEmbedder{vec: []float64{1}}).Search(context.Background(), Query{Text: "고객 이탈"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "jobs_to_be_done", res[0].ID)
	assert.Equal(t, []string{"design_thinking"}, res[0].Related)
	assert.Equal(t, []string{"five_whys"}, res[0].Complementary)
}

func TestSupabase_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()
	ctx := context.Background()

	_, err := NewSupabase(srv.URL, "k", fixedEmbedder{vec: []float64{1}}).Search(ctx, Query{Text: "x"})
	assert.ErrorContains(t, err, "status 500")

	_, err = NewSupabase(srv.URL, "k", fixedEmbedder{err: errors.New("no key")}).Search(ctx, Query{Text: "x"})
	assert.Error(t, err)

	assert.False(t, NewSupabase("", "k", fixedEmbedder{}).Available())
	assert.False(t, NewSupabase(srv.URL, "k", nil).Available())
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-3-small", body["model"])
		assert.Equal(t, "팀 생산성", body["input"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[0.5,-0.25]}],
			"usage":{"prompt_tokens":3,"total_tokens":3}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("sk-test", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	vec, err := e.Embed(context.Background(), "팀 생산성")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.25}, vec)
}
