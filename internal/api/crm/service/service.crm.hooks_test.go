// Test hook đồng bộ lastActivityAt từ activity của lead.
package crmvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	runtimemodels "copper_crm/internal/api/runtime/models"
)

func TestToLeadActivity(t *testing.T) {
	leadID := primitive.NewObjectID()
	activity := runtimemodels.LeadActivity{
		LeadID:       leadID,
		ActivityType: runtimemodels.ActivityEmailReply,
		OccurredAt:   1700000000000,
	}

	// Document của event có thể là con trỏ hoặc giá trị
	got, ok := toLeadActivity(&activity)
	require.True(t, ok)
	assert.Equal(t, leadID, got.LeadID)

	got, ok = toLeadActivity(activity)
	require.True(t, ok)
	assert.Equal(t, runtimemodels.ActivityEmailReply, got.ActivityType)

	_, ok = toLeadActivity(nil)
	assert.False(t, ok, "document nil thì hook bỏ qua")

	_, ok = toLeadActivity("not an activity")
	assert.False(t, ok, "document kiểu khác thì hook bỏ qua")
}
