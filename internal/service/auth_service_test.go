package service

import (
	"academy_backend/internal/model"
	"academy_backend/internal/util"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_EnrollsInAllTracks(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "Jane Trainee")
	assert.Equal(t, model.Trainee, user.Role)

	var rows []model.ModuleProgress
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Find(&rows).Error)
	assert.Len(t, rows, 12)

	unlocked := 0
	for _, r := range rows {
		if !r.Locked {
			unlocked++
		}
	}
	assert.Equal(t, 3, unlocked, "first module of each track")
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := RegisterInput{FullName: "Jane", Email: "Jane@Academy.test", Password: "secret123"}
	_, err := f.auth.Register(ctx, in)
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, in)
	assert.True(t, errors.Is(err, util.ErrEmailRegistered))

	res, err := f.auth.Login(ctx, "jane@academy.test", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotNil(t, res.User.LastLogin)

	claims, err := util.ParseJWT(res.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, model.Trainee, claims.Role)

	_, err = f.auth.Login(ctx, "jane@academy.test", "wrong")
	assert.True(t, errors.Is(err, util.ErrInvalidCredentials))

	_, err = f.auth.Login(ctx, "nobody@academy.test", "secret123")
	assert.True(t, errors.Is(err, util.ErrInvalidCredentials))
}

func TestAdminOverview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Trainee A")
	f.register(t, "Trainee B")

	f.completeTrack(t, a.ID, f.tracks[2], f.clock.Now(), 0)

	trainees, err := f.admin.ListTrainees(ctx)
	require.NoError(t, err)
	require.Len(t, trainees, 2)
	assert.Equal(t, 1, trainees[0].Completed)
	assert.Equal(t, 100.0, trainees[0].Tracks[2].Progress)
	assert.Equal(t, 0, trainees[1].Completed)

	tracks, err := f.admin.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, 5, tracks[0].ModuleCount)

	summary, err := f.admin.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalTrainees)
	assert.Equal(t, int64(3), summary.TotalTracks)
	assert.Equal(t, int64(1), summary.CertificatesIssued)
}
