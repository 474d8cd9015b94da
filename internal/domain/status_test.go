package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanChangeStatus(t *testing.T) {
	t.Run("allows each single forward step", func(t *testing.T) {
		steps := []struct {
			from TakeoffStatus
			to   TakeoffStatus
		}{
			{TakeoffStatusCreated, TakeoffStatusToMeasure},
			{TakeoffStatusToMeasure, TakeoffStatusUnderReview},
			{TakeoffStatusUnderReview, TakeoffStatusReadyToShip},
			{TakeoffStatusReadyToShip, TakeoffStatusShipped},
			{TakeoffStatusShipped, TakeoffStatusTrimmingCompleted},
			{TakeoffStatusTrimmingCompleted, TakeoffStatusBackTrimCompleted},
			{TakeoffStatusBackTrimCompleted, TakeoffStatusClosed},
		}
		for _, s := range steps {
			assert.True(t, CanChangeStatus(s.from, s.to), "%s -> %s should be allowed", s.from, s.to)
		}
	})

	t.Run("denies everything that is not the single forward step", func(t *testing.T) {
		for _, from := range AllStatuses() {
			next, hasNext := from.Successor()
			for _, to := range AllStatuses() {
				if hasNext && to == next {
					continue
				}
				assert.False(t, CanChangeStatus(from, to), "%s -> %s should be denied", from, to)
			}
		}
	})

	t.Run("denies skipping ahead", func(t *testing.T) {
		assert.False(t, CanChangeStatus(TakeoffStatusCreated, TakeoffStatusUnderReview))
		assert.False(t, CanChangeStatus(TakeoffStatusToMeasure, TakeoffStatusShipped))
	})

	t.Run("denies going backwards", func(t *testing.T) {
		assert.False(t, CanChangeStatus(TakeoffStatusShipped, TakeoffStatusReadyToShip))
		assert.False(t, CanChangeStatus(TakeoffStatusToMeasure, TakeoffStatusCreated))
	})

	t.Run("closed is terminal", func(t *testing.T) {
		for _, to := range AllStatuses() {
			assert.False(t, CanChangeStatus(TakeoffStatusClosed, to), "closed -> %s should be denied", to)
		}
		_, ok := TakeoffStatusClosed.Successor()
		assert.False(t, ok)
		assert.True(t, TakeoffStatusClosed.IsTerminal())
	})
}

func TestRoleCanAdvance(t *testing.T) {
	// allowed mirrors the full permission table; every pair outside
	// it must be denied.
	allowed := map[TakeoffStatus][]Role{
		TakeoffStatusCreated:           {RoleCompany, RoleManager},
		TakeoffStatusToMeasure:         {RoleCarpenter},
		TakeoffStatusUnderReview:       {RoleCompany, RoleManager},
		TakeoffStatusReadyToShip:       {RoleCompany, RoleManager, RoleDelivery},
		TakeoffStatusShipped:           {RoleCompany, RoleManager, RoleCarpenter},
		TakeoffStatusTrimmingCompleted: {RoleCompany, RoleManager, RoleCarpenter},
		TakeoffStatusBackTrimCompleted: {RoleCompany, RoleManager},
		TakeoffStatusClosed:            {},
	}

	roles := []Role{RoleCompany, RoleManager, RoleCarpenter, RoleDelivery}

	for status, allowedRoles := range allowed {
		for _, role := range roles {
			status, role := status, role
			want := false
			for _, a := range allowedRoles {
				if a == role {
					want = true
				}
			}
			t.Run(fmt.Sprintf("%s/%s", status, role), func(t *testing.T) {
				assert.Equal(t, want, RoleCanAdvance(status, role))
			})
		}
	}

	t.Run("super admin may advance any non-terminal status", func(t *testing.T) {
		for _, status := range AllStatuses() {
			if status.IsTerminal() {
				continue
			}
			assert.True(t, RoleCanAdvance(status, RoleSuperAdmin))
		}
	})

	t.Run("carpenter cannot advance under review", func(t *testing.T) {
		assert.False(t, RoleCanAdvance(TakeoffStatusUnderReview, RoleCarpenter))
	})

	t.Run("delivery only advances ready to ship", func(t *testing.T) {
		for _, status := range AllStatuses() {
			want := status == TakeoffStatusReadyToShip
			assert.Equal(t, want, RoleCanAdvance(status, RoleDelivery), "status %s", status)
		}
	})

	t.Run("any role in a set is enough", func(t *testing.T) {
		assert.True(t, RolesCanAdvance(TakeoffStatusCreated, []Role{RoleCarpenter, RoleManager}))
		assert.False(t, RolesCanAdvance(TakeoffStatusCreated, []Role{RoleCarpenter, RoleDelivery}))
	})
}

func TestNextStatuses(t *testing.T) {
	t.Run("returns the single successor", func(t *testing.T) {
		opts := NextStatuses(TakeoffStatusCreated)
		require.Len(t, opts, 1)
		assert.Equal(t, TakeoffStatusToMeasure, opts[0].Status)
		assert.Equal(t, "to_measure", opts[0].Name)
		assert.Equal(t, "To measure", opts[0].Label)
	})

	t.Run("returns empty for closed", func(t *testing.T) {
		assert.Empty(t, NextStatuses(TakeoffStatusClosed))
	})

	t.Run("every status except closed has exactly one successor", func(t *testing.T) {
		for _, status := range AllStatuses() {
			if status.IsTerminal() {
				continue
			}
			assert.Len(t, NextStatuses(status), 1, "status %s", status)
		}
	})
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"company", "manager", "carpenter", "delivery", "super_admin"} {
		role, ok := ParseRole(valid)
		assert.True(t, ok)
		assert.Equal(t, Role(valid), role)
	}

	_, ok := ParseRole("admin")
	assert.False(t, ok)
	_, ok = ParseRole("")
	assert.False(t, ok)
}
