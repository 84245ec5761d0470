package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ShussainML/schoolmealapp/internal/config"
	i18npkg "github.com/ShussainML/schoolmealapp/internal/i18n"
	"github.com/ShussainML/schoolmealapp/pkg/pollinations"
)

// scriptedClient returns successes and failures in call order, true meaning
// success. Calls beyond the script succeed.
type scriptedClient struct {
	failures []bool
	calls    int
	seeds    []int64
}

func (f *scriptedClient) Generate(ctx context.Context, prompt string, seed int64, width, height int) pollinations.Result {
	fail := f.calls < len(f.failures) && f.failures[f.calls]
	f.calls++
	f.seeds = append(f.seeds, seed)
	if fail {
		return pollinations.Result{
			Reason:  pollinations.KindTimeout,
			Message: "timed out after 120s",
			Debug:   pollinations.Debug{Seed: seed},
		}
	}
	return pollinations.Result{
		Image: image.NewRGBA(image.Rect(0, 0, 4, 4)),
		Debug: pollinations.Debug{Seed: seed, StatusCode: 200},
	}
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T, gen *scriptedClient) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	logger := zap.NewNop()
	i18nMgr, err := i18npkg.NewManager("en", logger)
	require.NoError(t, err)

	s := New(cfg, gen, i18nMgr, logger)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, client: &http.Client{Jar: jar}}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := e.client.Post(e.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (e *testEnv) getJSON(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func TestGenerateEndToEnd(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{})

	resp, _ := env.postJSON(t, "/api/generate", GenerateRequest{
		FoodDescription: "Fish fingers with chips and peas",
		StyleKey:        "realistic-photo",
		VariationCount:  3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out generateResponse
	_, raw := env.postJSON(t, "/api/generate", GenerateRequest{
		FoodDescription: "Apple crumble with custard",
		VariationCount:  2,
	})
	require.NoError(t, json.Unmarshal(mustMarshal(t, raw), &out))
	assert.Equal(t, 2, out.SuccessCount)
	assert.Equal(t, 0, out.FailureCount)
	assert.Equal(t, 5, out.GenerationCount, "count accumulates across batches")
	require.Len(t, out.Records, 2)
	assert.NotEqual(t, out.Records[0].Seed, out.Records[1].Seed)
	assert.True(t, strings.HasPrefix(out.Records[0].FileName, "meal_"))
	assert.Contains(t, out.Records[0].Prompt, "Apple crumble with custard")

	// Session view: newest batch first, five records in total.
	var sess struct {
		GenerationCount int          `json:"generation_count"`
		Records         []recordView `json:"records"`
	}
	env.getJSON(t, "/api/session", &sess)
	assert.Equal(t, 5, sess.GenerationCount)
	require.Len(t, sess.Records, 5)
	assert.Equal(t, "Apple crumble with custard", sess.Records[0].Food)
	assert.Equal(t, "Fish fingers with chips and peas", sess.Records[2].Food)
}

func TestGeneratePartialFailure(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{failures: []bool{false, true, true, false, true}})

	_, raw := env.postJSON(t, "/api/generate", GenerateRequest{
		FoodDescription: "Vegetable soup with crusty bread roll",
		VariationCount:  5,
	})
	var out generateResponse
	require.NoError(t, json.Unmarshal(mustMarshal(t, raw), &out))

	assert.Equal(t, 2, out.SuccessCount)
	assert.Equal(t, 3, out.FailureCount)
	require.Len(t, out.Attempts, 5)
	assert.Equal(t, "timeout", out.Attempts[1].ErrorKind)
	assert.Contains(t, out.Message, "failed")

	var dbg struct {
		Entries []struct {
			Variation int    `json:"variation"`
			Status    string `json:"status"`
		} `json:"entries"`
	}
	env.getJSON(t, "/api/debug", &dbg)
	require.Len(t, dbg.Entries, 5)
	assert.Equal(t, "timeout", dbg.Entries[1].Status)
}

func TestGenerateAllFailedMessage(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{failures: []bool{true, true}})

	_, raw := env.postJSON(t, "/api/generate", GenerateRequest{
		FoodDescription: "Coleslaw",
		VariationCount:  2,
	})
	var out generateResponse
	require.NoError(t, json.Unmarshal(mustMarshal(t, raw), &out))
	assert.Equal(t, 0, out.SuccessCount)
	assert.Contains(t, out.Message, "try again")
}

func TestGenerateValidation(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{})

	resp, _ := env.postJSON(t, "/api/generate", GenerateRequest{FoodDescription: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.postJSON(t, "/api/generate", GenerateRequest{FoodDescription: "Soup", StyleKey: "oil-painting"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.postJSON(t, "/api/generate", GenerateRequest{FoodDescription: "Soup", VariationCount: 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearResetsSession(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{})

	env.postJSON(t, "/api/generate", GenerateRequest{FoodDescription: "Flapjack bar", VariationCount: 2})

	resp, _ := env.postJSON(t, "/api/clear", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sess struct {
		GenerationCount int          `json:"generation_count"`
		Records         []recordView `json:"records"`
	}
	env.getJSON(t, "/api/session", &sess)
	assert.Equal(t, 0, sess.GenerationCount)
	assert.Empty(t, sess.Records)
}

func TestDownloadRecord(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{})

	_, raw := env.postJSON(t, "/api/generate", GenerateRequest{FoodDescription: "Carrot cake slice", VariationCount: 1})
	var out generateResponse
	require.NoError(t, json.Unmarshal(mustMarshal(t, raw), &out))
	require.Len(t, out.Records, 1)

	resp, err := env.client.Get(env.srv.URL + out.Records[0].DownloadURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), out.Records[0].FileName)

	missing, err := env.client.Get(env.srv.URL + "/api/images/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestMealsAndStyles(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{})

	var cats struct {
		Categories []struct {
			Name  string   `json:"name"`
			Meals []string `json:"meals"`
		} `json:"categories"`
	}
	env.getJSON(t, "/api/meals", &cats)
	require.Len(t, cats.Categories, 4)
	assert.Equal(t, "Main Course", cats.Categories[0].Name)

	var styles struct {
		Styles []struct {
			Key string `json:"key"`
		} `json:"styles"`
	}
	env.getJSON(t, "/api/styles", &styles)
	require.Len(t, styles.Styles, 4)
}

func TestPromptPreview(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{})

	var preview struct {
		Prompt string `json:"prompt"`
		Length int    `json:"length"`
	}
	q := url.Values{}
	q.Set("food", "Tuna pasta salad")
	q.Set("style", "menu-card")
	q.Set("ref_filename", "lunch_tray.jpg")
	env.getJSON(t, "/api/prompt/preview?"+q.Encode(), &preview)

	assert.Contains(t, preview.Prompt, "Tuna pasta salad")
	assert.Contains(t, preview.Prompt, "Similar style to: food item resembling lunch tray")
	assert.Equal(t, len(preview.Prompt), preview.Length)
}

func TestProgressStream(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{failures: []bool{false, true, false}})

	// Mint the session cookie, then subscribe before generating.
	var sess map[string]any
	env.getJSON(t, "/api/session", &sess)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/progress"
	u, err := url.Parse(env.srv.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range env.client.Jar.Cookies(u) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	env.postJSON(t, "/api/generate", GenerateRequest{FoodDescription: "Fruit smoothie", VariationCount: 3})

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev ProgressEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, i, ev.Index)
		assert.Equal(t, 3, ev.Total)
		assert.InDelta(t, float64(i+1)/3.0, ev.Fraction, 1e-9)
	}
}

func TestProgressStreamMintsSessionOnHandshake(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{})

	// First contact is the websocket. The upgrade hijacks the connection,
	// so the minted session cookie must arrive on the handshake response
	// for later HTTP calls to join the same session.
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/progress"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	var minted *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			minted = c
		}
	}
	require.NotNil(t, minted, "handshake response carries no session cookie")

	u, err := url.Parse(env.srv.URL)
	require.NoError(t, err)
	env.client.Jar.SetCookies(u, []*http.Cookie{minted})

	env.postJSON(t, "/api/generate", GenerateRequest{FoodDescription: "Jacket potato with beans", VariationCount: 2})

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev ProgressEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, i, ev.Index)
		assert.Equal(t, 2, ev.Total)
	}
}

func TestHealthListsLanguages(t *testing.T) {
	env := newTestEnv(t, &scriptedClient{})

	var health struct {
		Status    string   `json:"status"`
		Languages []string `json:"languages"`
	}
	env.getJSON(t, "/api/health", &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, []string{"en", "es"}, health.Languages)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
