package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

var channelColumns = []string{"id", "company_id", "unit_id", "type", "year", "active"}

func TestRecruitmentRepositoryFindCompanyByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecruitmentRepository(db)

	mock.ExpectQuery("WHERE LOWER\\(name\\) = LOWER\\(\\$1\\)").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Acme"))
	company, err := repo.FindCompanyByName(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", company.Name)

	mock.ExpectQuery("FROM companies").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	_, err = repo.FindCompanyByName(context.Background(), "nobody")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRecruitmentRepositoryFindActiveChannelFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecruitmentRepository(db)

	unitID := int64(10)
	year := 2024
	mock.ExpectQuery("AND active = TRUE AND unit_id = \\$3 AND year = \\$4 ORDER BY id DESC LIMIT 1").
		WithArgs(int64(1), models.ChannelTypeYearly, unitID, year).
		WillReturnRows(sqlmock.NewRows(channelColumns).AddRow(int64(101), int64(1), unitID, "YEARLY", year, true))

	channel, err := repo.FindActiveChannel(context.Background(), models.ChannelLookup{
		CompanyID: 1, UnitID: &unitID, Type: models.ChannelTypeYearly, Year: &year,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), channel.ID)
	assert.Equal(t, 2024, channel.YearValue())
}

func TestRecruitmentRepositoryFindActiveChannelCompanyWide(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecruitmentRepository(db)

	mock.ExpectQuery("WHERE company_id = \\$1 AND type = \\$2 AND active = TRUE ORDER BY id DESC LIMIT 1").
		WithArgs(int64(1), models.ChannelTypeAlways).
		WillReturnRows(sqlmock.NewRows(channelColumns).AddRow(int64(100), int64(1), int64(10), "ALWAYS", nil, true))

	channel, err := repo.FindActiveChannel(context.Background(), models.ChannelLookup{CompanyID: 1, Type: models.ChannelTypeAlways})
	require.NoError(t, err)
	assert.Nil(t, channel.Year)
}

func TestRecruitmentRepositoryListStepsByChannel(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecruitmentRepository(db)

	mock.ExpectQuery("ORDER BY s.position ASC, s.id ASC").
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel_id", "company_id", "name", "position", "prev_step_id", "next_step_id"}).
			AddRow(int64(1000), int64(100), int64(1), "Entry", 0, nil, int64(1001)).
			AddRow(int64(1001), int64(100), int64(1), "Interview", 1, int64(1000), nil))

	steps, err := repo.ListStepsByChannel(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Nil(t, steps[0].PrevStepID)
	require.NotNil(t, steps[1].PrevStepID)
	assert.Equal(t, int64(1000), *steps[1].PrevStepID)
}
