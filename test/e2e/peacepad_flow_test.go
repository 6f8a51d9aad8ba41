package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCoParentingFlow walks the full surface: a partnership with custody
// config, the computed calendar with vacation overrides, expense splitting,
// the settlement lifecycle with balances, and messaging with async tone
// analysis.
func TestCoParentingFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := DefaultConfig()
	RequireService(t, cfg.BaseURL)

	userA := NewHTTPClient(cfg.BaseURL, cfg.UserA)
	userB := NewHTTPClient(cfg.BaseURL, cfg.UserB)
	outsider := NewHTTPClient(cfg.BaseURL, "e2e-outsider")

	testStart := time.Now().Add(-1 * time.Second)

	// Week-on/week-off custody anchored on a Monday, user A primary.
	resp, err := userA.Post("/api/v1/partnerships", map[string]any{
		"user1_id":               cfg.UserA,
		"user2_id":               cfg.UserB,
		"custody_enabled":        true,
		"custody_pattern":        "week_on_off",
		"custody_start_date":     "2026-01-05",
		"custody_primary_parent": "user1",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	partnership, err := ParseResponse[map[string]any](resp)
	require.NoError(t, err)
	partnershipID := partnership["id"].(string)
	t.Logf("Created partnership %s", partnershipID)

	defer func() {
		resp, err := userA.Delete("/api/v1/partnerships/" + partnershipID)
		if err == nil {
			resp.Body.Close()
		}
	}()

	t.Run("NonMembersSeeNothing", func(t *testing.T) {
		resp, err := outsider.Get("/api/v1/partnerships/" + partnershipID)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("CustodyCalendar", func(t *testing.T) {
		// Week one belongs to the primary parent.
		resp, err := userB.Get(fmt.Sprintf("/api/v1/partnerships/%s/custody?date=2026-01-07", partnershipID))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		day, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "user1", day["parent"])

		// Week two flips.
		resp, err = userA.Get(fmt.Sprintf("/api/v1/partnerships/%s/custody?date=2026-01-14", partnershipID))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		day, err = ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "user2", day["parent"])

		// Two full weeks split 7/7.
		resp, err = userA.Get(fmt.Sprintf("/api/v1/partnerships/%s/custody/range?from=2026-01-05&to=2026-01-18", partnershipID))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		days, err := ParseResponse[[]map[string]any](resp)
		require.NoError(t, err)
		require.Len(t, days, 14)

		counts := map[string]int{}
		for _, d := range days {
			counts[d["parent"].(string)]++
		}
		assert.Equal(t, 7, counts["user1"])
		assert.Equal(t, 7, counts["user2"])
	})

	t.Run("VacationOverridesCustody", func(t *testing.T) {
		// User B books a vacation inside user A's week.
		resp, err := userB.Post(fmt.Sprintf("/api/v1/partnerships/%s/events", partnershipID), map[string]any{
			"title":      "Cabin trip",
			"type":       "vacation",
			"start_date": "2026-01-06",
			"end_date":   "2026-01-08",
		})
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, err = userA.Get(fmt.Sprintf("/api/v1/partnerships/%s/custody?date=2026-01-07", partnershipID))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		day, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "user2", day["parent"])

		// Days outside the vacation still follow the pattern.
		resp, err = userA.Get(fmt.Sprintf("/api/v1/partnerships/%s/custody?date=2026-01-09", partnershipID))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		day, err = ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "user1", day["parent"])
	})

	var expenseID string
	t.Run("ExpenseSplit", func(t *testing.T) {
		resp, err := userA.Post(fmt.Sprintf("/api/v1/partnerships/%s/expenses", partnershipID), map[string]any{
			"description":       "School supplies",
			"amount":            "120.50",
			"paid_by":           cfg.UserA,
			"split_percentages": map[string]int{cfg.UserA: 50, cfg.UserB: 50},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		expense, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		expenseID = expense["id"].(string)
		assert.Equal(t, "pending", expense["status"])

		// Splits must sum to exactly 100.
		resp, err = userA.Post(fmt.Sprintf("/api/v1/partnerships/%s/expenses", partnershipID), map[string]any{
			"description":       "Bad split",
			"amount":            "10.00",
			"paid_by":           cfg.UserA,
			"split_percentages": map[string]int{cfg.UserA: 60, cfg.UserB: 50},
		})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		// Splits may only name partnership members.
		resp, err = userA.Post(fmt.Sprintf("/api/v1/partnerships/%s/expenses", partnershipID), map[string]any{
			"description":       "Stranger in the split",
			"amount":            "10.00",
			"paid_by":           cfg.UserA,
			"split_percentages": map[string]int{cfg.UserA: 50, "someone-else": 50},
		})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("SettlementLifecycle", func(t *testing.T) {
		// B pays their half back to A.
		resp, err := userB.Post(fmt.Sprintf("/api/v1/expenses/%s/settlements", expenseID), map[string]any{
			"receiver_id": cfg.UserA,
			"amount":      "60.25",
			"method":      "venmo",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		stl, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		settlementID := stl["id"].(string)
		assert.Equal(t, "pending", stl["status"])
		assert.Equal(t, cfg.UserB, stl["payer_id"])

		// Only the receiver may confirm.
		resp, err = userB.Post(fmt.Sprintf("/api/v1/settlements/%s/confirm", settlementID), nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		// Outsiders cannot even see it.
		resp, err = outsider.Post(fmt.Sprintf("/api/v1/settlements/%s/confirm", settlementID), nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, err = userA.Post(fmt.Sprintf("/api/v1/settlements/%s/confirm", settlementID), nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		confirmed, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "confirmed", confirmed["status"])

		// Confirming a resolved settlement conflicts.
		resp, err = userA.Post(fmt.Sprintf("/api/v1/settlements/%s/confirm", settlementID), nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		// Half of 120.50 is confirmed, so the expense is paid but not settled.
		resp, err = userA.Get("/api/v1/expenses/" + expenseID)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		expense, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "paid", expense["status"])
	})

	t.Run("BalancesReflectConfirmedSettlements", func(t *testing.T) {
		resp, err := userA.Get(fmt.Sprintf("/api/v1/partnerships/%s/balance", partnershipID))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		bal, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "60.25", bal["net_balance"])

		// A member can read the other member's balance.
		resp, err = userA.Get(fmt.Sprintf("/api/v1/partnerships/%s/balance?user_id=%s", partnershipID, cfg.UserB))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		bal, err = ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "-60.25", bal["net_balance"])
	})

	t.Run("DisputeFreezesTheSettlement", func(t *testing.T) {
		resp, err := userB.Post(fmt.Sprintf("/api/v1/expenses/%s/settlements", expenseID), map[string]any{
			"receiver_id": cfg.UserA,
			"amount":      "60.25",
			"method":      "venmo",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		stl, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		settlementID := stl["id"].(string)

		resp, err = userA.Post(fmt.Sprintf("/api/v1/settlements/%s/dispute", settlementID), map[string]any{
			"reason": "never received the transfer",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		disputed, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "rejected", disputed["status"])
		assert.Equal(t, "never received the transfer", disputed["rejected_reason"])

		// A disputed settlement cannot be confirmed afterwards.
		resp, err = userA.Post(fmt.Sprintf("/api/v1/settlements/%s/confirm", settlementID), nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		// Balances only move on confirmation.
		resp, err = userB.Get(fmt.Sprintf("/api/v1/partnerships/%s/balance", partnershipID))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		bal, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		assert.Equal(t, "-60.25", bal["net_balance"])
	})

	var messageID string
	t.Run("MessagingWithToneAnalysis", func(t *testing.T) {
		resp, err := userA.Post(fmt.Sprintf("/api/v1/partnerships/%s/messages", partnershipID), map[string]any{
			"content": "Please remember pickup is at 3pm sharp.",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		msg, err := ParseResponse[map[string]any](resp)
		require.NoError(t, err)
		messageID = msg["id"].(string)
		assert.Nil(t, msg["tone"])

		// Tone analysis is asynchronous; poll until the worker writes it back.
		toned := WaitFor(t, 30*time.Second, time.Second, func() bool {
			resp, err := userB.Get(fmt.Sprintf("/api/v1/partnerships/%s/messages", partnershipID))
			if err != nil {
				return false
			}
			list, err := ParseResponse[map[string]any](resp)
			if err != nil {
				return false
			}
			items, _ := list["items"].([]any)
			for _, item := range items {
				m, _ := item.(map[string]any)
				if m["id"] == messageID && m["tone"] != nil {
					return true
				}
			}
			return false
		})
		assert.True(t, toned, "tone analysis did not land on the message")
	})

	t.Run("LifecycleEventsPublished", func(t *testing.T) {
		kafkaHelper := NewKafkaHelper(cfg.KafkaBrokers)
		groupID := fmt.Sprintf("e2e-verify-%d", time.Now().UnixNano())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		messages, err := kafkaHelper.ConsumeMessagesAfter(ctx, cfg.EventsTopic, groupID, 25*time.Second, 50, testStart)
		require.NoError(t, err)

		seen := map[string]bool{}
		for _, msg := range messages {
			var event struct {
				EventType     string `json:"event_type"`
				PartnershipID string `json:"partnership_id"`
			}
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				continue
			}
			if event.PartnershipID == partnershipID {
				seen[event.EventType] = true
			}
		}

		assert.True(t, seen["expense.created"], "missing expense.created event")
		assert.True(t, seen["settlement.initiated"], "missing settlement.initiated event")
		assert.True(t, seen["settlement.confirmed"], "missing settlement.confirmed event")
		assert.True(t, seen["settlement.disputed"], "missing settlement.disputed event")
		assert.True(t, seen["message.created"], "missing message.created event")
	})
}

// TestAuthAndValidation covers the request-level rejections that do not
// need any prior state.
func TestAuthAndValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := DefaultConfig()
	RequireService(t, cfg.BaseURL)

	t.Run("MissingIdentity", func(t *testing.T) {
		anonymous := NewHTTPClient(cfg.BaseURL, "")
		resp, err := anonymous.Get("/api/v1/partnerships")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("PartnershipRequiresDistinctMembers", func(t *testing.T) {
		client := NewHTTPClient(cfg.BaseURL, cfg.UserA)
		resp, err := client.Post("/api/v1/partnerships", map[string]any{
			"user1_id": cfg.UserA,
			"user2_id": cfg.UserA,
		})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("CreatorMustBeMember", func(t *testing.T) {
		client := NewHTTPClient(cfg.BaseURL, "e2e-nosy-neighbor")
		resp, err := client.Post("/api/v1/partnerships", map[string]any{
			"user1_id": cfg.UserA,
			"user2_id": cfg.UserB,
		})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("CustodyConfigNeedsPatternAndStart", func(t *testing.T) {
		client := NewHTTPClient(cfg.BaseURL, cfg.UserA)
		resp, err := client.Post("/api/v1/partnerships", map[string]any{
			"user1_id":        cfg.UserA,
			"user2_id":        cfg.UserB,
			"custody_enabled": true,
		})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
