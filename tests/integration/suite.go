package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	authcodesvc "gitlab.com/ucmsv2/authcode-service"
	"gitlab.com/ucmsv2/authcode-service/internal/domain/event"
	"gitlab.com/ucmsv2/authcode-service/pkg/env"
	postgrespkg "gitlab.com/ucmsv2/authcode-service/pkg/postgres"
	"gitlab.com/ucmsv2/authcode-service/pkg/watermillx"
)

type TestSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	pgPool      *pgxpool.Pool
	app         *App
	cancel      context.CancelFunc
}

func (s *TestSuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("authcode_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.Require().NoError(postgrespkg.Migrate(postgrespkg.MigrateDSN(connStr), authcodesvc.Migrations, "migrations"))

	s.pgPool, err = postgrespkg.NewPgxPool(ctx, postgrespkg.PoolArgs{DSN: connStr, Mode: env.Test})
	s.Require().NoError(err)

	wmlogger := watermillx.NewSlogAdapter(nil, watermillx.LevelTrace)
	s.Require().NoError(watermillx.InitializeEventSchema(ctx, s.pgPool, wmlogger))

	appCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.app, err = NewApp(appCtx, s.pgPool)
	s.Require().NoError(err)
}

func (s *TestSuite) TearDownSuite() {
	if s.app != nil {
		s.NoError(s.app.Close())
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.pgContainer != nil {
		s.NoError(s.pgContainer.Terminate(context.Background()))
	}
}

func (s *TestSuite) AfterTest(suiteName, testName string) {
	_, err := s.pgPool.Exec(context.Background(), "TRUNCATE TABLE auth_codes")
	s.Require().NoError(err)
	s.app.MailSender.Reset()
}

func (s *TestSuite) App() *App {
	return s.app
}

type Response struct {
	Status  int
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *TestSuite) Do(method, path string, params url.Values) Response {
	target := path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.app.HTTPHandler.ServeHTTP(rec, req)

	res := Response{Status: rec.Code}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return res
}

func (s *TestSuite) AssertStatus(res Response, status int) {
	s.Require().Equal(status, res.Status, "unexpected status, body: %+v", res)
	s.Equal(status == http.StatusOK, res.Success)
}

// StoredCodes returns the codes of site and user ordered by creation.
func (s *TestSuite) StoredCodes(siteID, userID string) []string {
	rows, err := s.pgPool.Query(context.Background(),
		`SELECT code FROM auth_codes WHERE site_id = $1 AND user_id = $2 ORDER BY created_at`, siteID, userID)
	s.Require().NoError(err)
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		s.Require().NoError(rows.Scan(&code))
		codes = append(codes, code)
	}
	s.Require().NoError(rows.Err())
	return codes
}

// ExpireCodes moves every stored code of site and user into the past.
func (s *TestSuite) ExpireCodes(siteID, userID string, ago time.Duration) {
	_, err := s.pgPool.Exec(context.Background(),
		`UPDATE auth_codes SET expires_at = NOW() - $3::interval, created_at = NOW() - $3::interval - INTERVAL '30 minutes'
		 WHERE site_id = $1 AND user_id = $2`,
		siteID, userID, fmt.Sprintf("%d seconds", int(ago.Seconds())))
	s.Require().NoError(err)
}

// AssertEvent decodes the latest outbox row of the event type fn accepts.
func AssertEvent[E any, T interface {
	*E
	event.Event
}](s *TestSuite, fn func(event T)) {
	e := T(new(E))
	name := cqrs.JSONMarshaler{}.Name(e)
	query := fmt.Sprintf(
		`SELECT payload FROM %s WHERE metadata->>'name' = $1 ORDER BY "offset" DESC LIMIT 1`,
		"watermill_"+e.GetStreamName(),
	)

	var payload []byte
	err := s.pgPool.QueryRow(context.Background(), query, name).Scan(&payload)
	s.Require().NoError(err, "failed to get event %s from the outbox", name)
	s.Require().NoError(json.Unmarshal(payload, e))
	fn(e)
}
