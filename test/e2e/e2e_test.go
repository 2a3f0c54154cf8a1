//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_ManualKnowledge covers direct insertion and single-answer lookup
func TestE2E_ManualKnowledge(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("add and search", func(t *testing.T) {
		env.Reset()

		status, body := env.Post("/add_manual_knowledge", map[string]interface{}{
			"question":          "washing machine drum not spinning",
			"answer":            "Check the drive belt and replace it if worn.",
			"brand":             "Bosch",
			"product_category":  "washing_machine",
			"issue_category":    "mechanical",
			"resolution_method": "part_replacement",
			"confidence_score":  0.9,
		})
		require.Equal(t, http.StatusCreated, status)

		var added struct {
			Status  string `json:"status"`
			EntryID string `json:"entry_id"`
		}
		require.NoError(t, json.Unmarshal(body, &added))
		assert.Equal(t, "added", added.Status)
		assert.NotEmpty(t, added.EntryID)

		status, body = env.Post("/manual_search", map[string]string{
			"question": "washing machine drum not spinning",
		})
		require.Equal(t, http.StatusOK, status)

		var found struct {
			Found      bool              `json:"found"`
			Status     string            `json:"status"`
			Answer     string            `json:"answer"`
			Confidence float32           `json:"confidence"`
			Metadata   map[string]string `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(body, &found))
		assert.True(t, found.Found)
		assert.Equal(t, "found", found.Status)
		assert.Equal(t, "Check the drive belt and replace it if worn.", found.Answer)
		assert.Greater(t, found.Confidence, float32(0.3))
		assert.Equal(t, "Bosch", found.Metadata["brand"])
	})

	t.Run("search with no match", func(t *testing.T) {
		env.Reset()

		status, body := env.Post("/manual_search", map[string]string{
			"question": "television shows vertical lines",
		})
		require.Equal(t, http.StatusOK, status)

		var resp struct {
			Found  bool   `json:"found"`
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.False(t, resp.Found)
		assert.Equal(t, "not_found", resp.Status)
	})

	t.Run("list entries", func(t *testing.T) {
		env.Reset()

		for _, q := range []string{"fridge leaking water", "fridge too warm"} {
			status, _ := env.Post("/add_manual_knowledge", map[string]interface{}{
				"question": q,
				"answer":   "Inspect the unit.",
			})
			require.Equal(t, http.StatusCreated, status)
		}

		status, body := env.Get("/manual_knowledge?limit=10")
		require.Equal(t, http.StatusOK, status)

		var resp struct {
			Data struct {
				Items []struct {
					Question string `json:"question"`
				} `json:"items"`
				HasMore bool `json:"has_more"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Len(t, resp.Data.Items, 2)
		assert.False(t, resp.Data.HasMore)
	})
}

// TestE2E_FeedbackLoop covers the correction episode lifecycle: log, promote,
// and retrieve through manual search.
func TestE2E_FeedbackLoop(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("positive resolved feedback promotes", func(t *testing.T) {
		env.Reset()

		status, body := env.Post("/feedback", map[string]interface{}{
			"user_question":         "dishwasher door will not latch",
			"original_answer":       "Try restarting the dishwasher.",
			"feedback_type":         "incorrect",
			"manual_solution":       "Adjust the latch plate alignment screws.",
			"support_agent":         "agent-17",
			"brand":                 "Miele",
			"product_category":      "dishwasher",
			"customer_satisfaction": "very_satisfied",
			"tags":                  []string{"expert_reviewed"},
		})
		require.Equal(t, http.StatusCreated, status)

		var resp struct {
			Data struct {
				Status     string `json:"status"`
				FeedbackID string `json:"feedback_id"`
				Promoted   bool   `json:"promoted"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, "logged", resp.Data.Status)
		assert.NotEmpty(t, resp.Data.FeedbackID)
		assert.True(t, resp.Data.Promoted)

		// The promoted solution is now retrievable by the same question
		status, body = env.Post("/manual_search", map[string]string{
			"question": "dishwasher door will not latch",
		})
		require.Equal(t, http.StatusOK, status)

		var found struct {
			Found      bool   `json:"found"`
			Answer     string `json:"answer"`
			SourceType string `json:"source_type"`
		}
		require.NoError(t, json.Unmarshal(body, &found))
		assert.True(t, found.Found)
		assert.Equal(t, "Adjust the latch plate alignment screws.", found.Answer)
		assert.Equal(t, "real_time_manual", found.SourceType)
	})

	t.Run("neutral feedback is logged but not promoted", func(t *testing.T) {
		env.Reset()

		status, body := env.Post("/feedback", map[string]interface{}{
			"user_question":         "oven heats unevenly",
			"feedback_type":         "incomplete",
			"manual_solution":       "Recalibrate the thermostat.",
			"customer_satisfaction": "neutral",
		})
		require.Equal(t, http.StatusCreated, status)

		var resp struct {
			Data struct {
				Promoted bool `json:"promoted"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.False(t, resp.Data.Promoted)

		status, body = env.Post("/manual_search", map[string]string{
			"question": "oven heats unevenly",
		})
		require.Equal(t, http.StatusOK, status)

		var found struct {
			Found bool `json:"found"`
		}
		require.NoError(t, json.Unmarshal(body, &found))
		assert.False(t, found.Found)
	})

	t.Run("ledger sync promotes backlog once", func(t *testing.T) {
		env.Reset()

		// Feedback without a manual solution is never promotable, so only
		// the second record should sync.
		status, _ := env.Post("/feedback", map[string]interface{}{
			"user_question":         "vacuum loses suction",
			"feedback_type":         "unsatisfactory",
			"customer_satisfaction": "very_satisfied",
		})
		require.Equal(t, http.StatusCreated, status)

		status, _ = env.Post("/feedback", map[string]interface{}{
			"user_question":         "kettle switches off early",
			"feedback_type":         "manual_correction",
			"manual_solution":       "Descale the heating element.",
			"customer_satisfaction": "5",
		})
		require.Equal(t, http.StatusCreated, status)

		// The second record was already promoted at submit time, so a
		// sync pass finds nothing new and stays idempotent.
		promoted, err := env.FeedbackSvc.SyncLedger(env.Ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, promoted)
	})

	t.Run("similar issue search", func(t *testing.T) {
		env.Reset()

		status, _ := env.Post("/feedback", map[string]interface{}{
			"user_question":         "coffee machine drips water everywhere",
			"feedback_type":         "manual_correction",
			"manual_solution":       "Replace the brew group gasket.",
			"customer_satisfaction": "satisfied",
			"brand":                 "DeLonghi",
		})
		require.Equal(t, http.StatusCreated, status)

		status, body := env.Post("/feedback/similar", map[string]interface{}{
			"question": "coffee machine drips during brewing",
			"brand":    "DeLonghi",
		})
		require.Equal(t, http.StatusOK, status)

		var resp struct {
			Data struct {
				Items []struct {
					Question       string  `json:"question"`
					ManualSolution string  `json:"manual_solution"`
					RelevanceScore float32 `json:"relevance_score"`
				} `json:"items"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		require.Len(t, resp.Data.Items, 1)
		assert.Equal(t, "Replace the brew group gasket.", resp.Data.Items[0].ManualSolution)
		assert.Greater(t, resp.Data.Items[0].RelevanceScore, float32(0))
	})
}

// TestE2E_Query covers the fused answering pipeline without a generation
// model: answers are templated from retrieved context.
func TestE2E_Query(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("manual knowledge answers a query", func(t *testing.T) {
		env.Reset()

		status, _ := env.Post("/add_manual_knowledge", map[string]interface{}{
			"question":         "dryer makes loud rattling noise",
			"answer":           "Check the drum rollers for wear.",
			"brand":            "Samsung",
			"product_category": "dryer",
			"confidence_score": 0.85,
		})
		require.Equal(t, http.StatusCreated, status)

		status, body := env.Post("/query", map[string]interface{}{
			"question":           "dryer makes loud rattling noise",
			"brand":              "Samsung",
			"validation_enabled": true,
		})
		require.Equal(t, http.StatusOK, status)

		var resp struct {
			Data struct {
				Answer         string `json:"answer"`
				ResponseSource string `json:"response_source"`
				ManualSources  []struct {
					Question string `json:"question"`
					Brand    string `json:"brand"`
				} `json:"manual_sources"`
				TotalSources int `json:"total_sources"`
				Validation   *struct {
					OverallScore float32 `json:"overall_score"`
				} `json:"validation"`
				Confidence struct {
					HasManualSolutions bool    `json:"has_manual_solutions"`
					OverallConfidence  float32 `json:"overall_confidence"`
				} `json:"confidence_indicators"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Contains(t, resp.Data.Answer, "Check the drum rollers for wear.")
		assert.Equal(t, "templated", resp.Data.ResponseSource)
		require.Len(t, resp.Data.ManualSources, 1)
		assert.Equal(t, "Samsung", resp.Data.ManualSources[0].Brand)
		assert.True(t, resp.Data.Confidence.HasManualSolutions)
		assert.Greater(t, resp.Data.Confidence.OverallConfidence, float32(0))
		require.NotNil(t, resp.Data.Validation)
	})

	t.Run("empty stores yield a no-information answer", func(t *testing.T) {
		env.Reset()

		status, body := env.Post("/query", map[string]string{
			"question": "microwave display is blank",
		})
		require.Equal(t, http.StatusOK, status)

		var resp struct {
			Data struct {
				Answer       string `json:"answer"`
				TotalSources int    `json:"total_sources"`
				Confidence   struct {
					OverallConfidence float32 `json:"overall_confidence"`
				} `json:"confidence_indicators"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.NotEmpty(t, resp.Data.Answer)
		assert.Equal(t, 0, resp.Data.TotalSources)
		assert.Equal(t, float32(0), resp.Data.Confidence.OverallConfidence)
	})
}

// TestE2E_SystemEndpoints covers validation, interaction logging, health,
// and stats.
func TestE2E_SystemEndpoints(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("validate answer", func(t *testing.T) {
		status, body := env.Post("/validate_answer", map[string]string{
			"question": "how do I reset my router to factory settings",
			"answer":   "Hold the reset button for ten seconds. First unplug the router, then press reset while reconnecting power. Check that the status light blinks.",
		})
		require.Equal(t, http.StatusOK, status)

		var resp struct {
			IsValid         bool    `json:"is_valid"`
			OverallScore    float32 `json:"overall_score"`
			ConfidenceBoost float32 `json:"confidence_boost"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Greater(t, resp.OverallScore, float32(0))
		assert.NotZero(t, resp.ConfidenceBoost)
	})

	t.Run("log interaction and read stats", func(t *testing.T) {
		env.Reset()

		status, body := env.Post("/log_interaction", map[string]interface{}{
			"query":      "blender blades stuck",
			"answer":     "Unplug and clear the blade assembly.",
			"source":     "manual_knowledge",
			"confidence": 0.8,
		})
		require.Equal(t, http.StatusCreated, status)

		var logged struct {
			Status string `json:"status"`
			LogID  string `json:"log_id"`
		}
		require.NoError(t, json.Unmarshal(body, &logged))
		assert.Equal(t, "logged", logged.Status)
		assert.NotEmpty(t, logged.LogID)

		status, body = env.Get("/health")
		require.Equal(t, http.StatusOK, status)

		var health struct {
			Status             string `json:"status"`
			LoggedInteractions int    `json:"logged_interactions"`
		}
		require.NoError(t, json.Unmarshal(body, &health))
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, 1, health.LoggedInteractions)

		status, body = env.Get("/stats")
		require.Equal(t, http.StatusOK, status)

		var stats struct {
			Interactions struct {
				TotalInteractions int            `json:"total_interactions"`
				BySource          map[string]int `json:"by_source"`
			} `json:"interactions"`
		}
		require.NoError(t, json.Unmarshal(body, &stats))
		assert.Equal(t, 1, stats.Interactions.TotalInteractions)
		assert.Equal(t, 1, stats.Interactions.BySource["manual_knowledge"])
	})
}
