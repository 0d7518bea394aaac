package bot

import (
	"testing"

	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	"github.com/stretchr/testify/assert"
)

func TestRenewalPlanCode(t *testing.T) {
	sub := func(plan, status string) *subscriptions.Subscription {
		return &subscriptions.Subscription{SourcePlan: plan, Status: status}
	}

	t.Run("нет подписок", func(t *testing.T) {
		assert.Empty(t, renewalPlanCode(nil))
	})

	t.Run("триал в один тап не продлевается", func(t *testing.T) {
		assert.Empty(t, renewalPlanCode([]*subscriptions.Subscription{
			sub(subscriptions.SourcePlanTrial, subscriptions.StatusActive),
		}))
	})

	t.Run("неактивные не предлагаются", func(t *testing.T) {
		assert.Empty(t, renewalPlanCode([]*subscriptions.Subscription{
			sub("plan_eco", subscriptions.StatusExpired),
			sub("plan_mini", subscriptions.StatusSuspended),
		}))
	})

	t.Run("берётся самая свежая активная платная", func(t *testing.T) {
		// список приходит отсортированным по id DESC
		got := renewalPlanCode([]*subscriptions.Subscription{
			sub(subscriptions.SourcePlanTrial, subscriptions.StatusActive),
			sub("plan_std2", subscriptions.StatusActive),
			sub("plan_mini", subscriptions.StatusActive),
			sub("plan_eco", subscriptions.StatusExpired),
		})
		assert.Equal(t, "plan_std2", got)
	})
}

func TestRenewKeyboard(t *testing.T) {
	kb := renewKeyboard("plan_eco")
	assert.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "buy:plan_eco", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "back:plans", *kb.InlineKeyboard[1][0].CallbackData)

	// без подходящего плана остаётся только переход к списку
	kb = renewKeyboard("")
	assert.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "back:plans", *kb.InlineKeyboard[0][0].CallbackData)
}
