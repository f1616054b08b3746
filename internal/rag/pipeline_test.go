package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hive/internal/generation"
	"hive/internal/store"
)

func TestPipeline_Guard(t *testing.T) {
	for name, req := range map[string]*Request{
		"nil request": nil,
		"empty claim": {Claim: "", Context: []string{"evidence"}, RequestID: "post-1"},
		"blank claim": {Claim: "   \n", RequestID: "post-2"},
	} {
		t.Run(name, func(t *testing.T) {
			emb := &mockEmbedder{}
			gen := &mockGenerator{}
			idx := &mockIndex{}
			scoped := 0
			p := NewPipeline(emb, gen, func(string) Index { scoped++; return idx })

			resp, err := p.Verify(context.Background(), req, 4)
			require.NoError(t, err)
			assert.Equal(t, LabelUnverified, resp.Status)
			assert.Equal(t, NoContentReason, resp.Rationale)
			assert.NotNil(t, resp.SupportingContext)
			if req != nil {
				assert.Equal(t, req.RequestID, resp.Metadata.RequestID)
			}

			assert.Zero(t, emb.callCount())
			assert.Zero(t, gen.callCount())
			assert.Zero(t, idx.upserts+idx.queries)
			assert.Zero(t, scoped)
		})
	}
}

func TestPipeline_ClaimWithoutContext(t *testing.T) {
	gen := scriptedGenerator("I am unsure.", "not json at all")
	idx := &mockIndex{QueryFunc: func(context.Context, []float32, int) ([]string, error) {
		return []string{"The moon is made of cheese"}, nil
	}}
	p := NewPipeline(&mockEmbedder{}, gen, SharedScope(idx))

	resp, err := p.Verify(context.Background(), &Request{Claim: "The moon is made of cheese"}, 4)
	require.NoError(t, err)
	assert.True(t, resp.Status.IsValid())
	assert.Equal(t, LabelOther, resp.Status)
	assert.Equal(t, 0.5, resp.Confidence)
	assert.Equal(t, "not json at all", resp.Rationale)
	assert.Equal(t, []string{"The moon is made of cheese"}, idx.lastDocs, "claim is indexed as its own evidence")
}

func TestPipeline_DefaultTopK(t *testing.T) {
	idx := &mockIndex{}
	p := NewPipeline(&mockEmbedder{}, scriptedGenerator("a", "{}"), SharedScope(idx))

	resp, err := p.Verify(context.Background(), &Request{Claim: "claim"}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, idx.lastTopK)
	assert.Equal(t, []string{}, resp.SupportingContext)
}

func TestPipeline_StageOrderAndObserver(t *testing.T) {
	obs := &recordingObserver{}
	gen := scriptedGenerator("answer", "prose verdict")
	p := NewPipeline(&mockEmbedder{}, gen, SharedScope(&mockIndex{}), WithObserver(obs))

	_, err := p.Verify(context.Background(), &Request{Claim: "claim", Context: []string{"ctx"}}, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{StageBuild, StageRetrieve, StageAnswer, StageClassify}, obs.stages)
	assert.Equal(t, 1, obs.fallbacks)

	require.Len(t, gen.prompts, 2)
	assert.False(t, isClassifyPrompt(gen.prompts[0]))
	assert.True(t, isClassifyPrompt(gen.prompts[1]))
	assert.Contains(t, gen.prompts[1], "Answer: answer\n")
}

func TestPipeline_ErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	req := &Request{Claim: "claim", Context: []string{"ctx"}, RequestID: "r1"}

	t.Run("build", func(t *testing.T) {
		idx := &mockIndex{UpsertFunc: func(context.Context, []string, []string, [][]float32) error {
			return errors.New("disk full")
		}}
		gen := &mockGenerator{}
		resp, err := NewPipeline(&mockEmbedder{}, gen, SharedScope(idx)).Verify(ctx, req, 4)
		assert.Nil(t, resp)
		var buildErr *CorpusBuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Zero(t, idx.queries)
		assert.Zero(t, gen.callCount())
	})

	t.Run("retrieve", func(t *testing.T) {
		idx := &mockIndex{QueryFunc: func(context.Context, []float32, int) ([]string, error) {
			return nil, errors.New("database is locked")
		}}
		gen := &mockGenerator{}
		_, err := NewPipeline(&mockEmbedder{}, gen, SharedScope(idx)).Verify(ctx, req, 4)
		var rErr *RetrievalError
		require.ErrorAs(t, err, &rErr)
		assert.Zero(t, gen.callCount())
	})

	t.Run("generation", func(t *testing.T) {
		gen := &mockGenerator{GenerateFunc: func(context.Context, string) (*generation.Response, error) {
			return nil, errors.New("503 unavailable")
		}}
		_, err := NewPipeline(&mockEmbedder{}, gen, SharedScope(&mockIndex{})).Verify(ctx, req, 4)
		var gErr *GenerationError
		require.ErrorAs(t, err, &gErr)
		assert.Equal(t, "answer", gErr.Purpose)
		assert.Equal(t, 1, gen.callCount(), "classify is not attempted")
	})
}

func TestPipeline_DelhiEndToEnd(t *testing.T) {
	ctx := context.Background()
	vs, err := store.NewVectorStore(":memory:", "verification_docs")
	require.NoError(t, err)
	defer vs.Close()

	gen := scriptedGenerator(
		"Yes. The context states \"Delhi is a union territory\".",
		"```json\n{\"label\": \"verified\", \"confidence\": 0.9, \"rationale\": \"Directly supported by the context.\"}\n```",
	)
	scope := func(requestID string) Index { return vs.Namespace(requestID) }
	p := NewPipeline(&mockEmbedder{}, gen, scope)

	req := &Request{
		Claim:     "Delhi is a union territory",
		Context:   []string{"Delhi is a union territory", "Delhi is the capital of India"},
		RequestID: "post-delhi",
	}
	resp, err := p.Verify(ctx, req, 4)
	require.NoError(t, err)

	stats, err := vs.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "post-delhi", stats[0].Namespace)
	assert.Equal(t, 2, stats[0].Documents, "claim duplicates the first context item")

	assert.LessOrEqual(t, len(resp.SupportingContext), 4)
	require.NotEmpty(t, resp.SupportingContext)
	assert.Equal(t, "Delhi is a union territory", resp.SupportingContext[0], "exact match ranks first")
	assert.NotEmpty(t, resp.Answer)
	assert.True(t, resp.Status.IsValid())
	assert.Equal(t, LabelVerified, resp.Status)
	assert.GreaterOrEqual(t, resp.Confidence, 0.0)
	assert.LessOrEqual(t, resp.Confidence, 1.0)
	assert.Equal(t, "post-delhi", resp.Metadata.RequestID)
	assert.False(t, resp.Metadata.Error)

	// Another request with the same positional ids does not disturb this one.
	_, err = p.Verify(ctx, &Request{Claim: "Mumbai is in Maharashtra", RequestID: "post-mumbai"}, 4)
	require.NoError(t, err)
	docs, err := vs.Namespace("post-delhi").Query(ctx, keywordEmbed([]string{"Delhi"})[0], 4)
	require.NoError(t, err)
	assert.NotContains(t, docs, "Mumbai is in Maharashtra")
}

func TestPipeline_IndexesContextPlusClaim(t *testing.T) {
	ctx := context.Background()
	vs, err := store.NewVectorStore(":memory:", "verification_docs")
	require.NoError(t, err)
	defer vs.Close()

	p := NewPipeline(&mockEmbedder{}, scriptedGenerator("answer", "{}"), func(id string) Index { return vs.Namespace(id) })
	_, err = p.Verify(ctx, &Request{
		Claim:     "Delhi is a union territory of India",
		Context:   []string{"Delhi is a union territory", "Delhi is the capital of India"},
		RequestID: "r",
	}, 4)
	require.NoError(t, err)

	stats, err := vs.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 3, stats[0].Documents)
	assert.Equal(t, 3, stats[0].Embedded)
}
