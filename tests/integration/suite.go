package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/stretchr/testify/suite"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/mails"
)

// TestSuite runs requests against App backed by one container per suite.
// Tables are truncated before every test.
type TestSuite struct {
	suite.Suite
	db  *Database
	app *App
}

func (s *TestSuite) SetupSuite() {
	s.db = StartPostgres(s.T())
	s.app = NewApp(s.T(), s.db)
}

func (s *TestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close(s.T())
	}
}

func (s *TestSuite) SetupTest() {
	s.db.Truncate(s.T())
	s.app.MockMailSender.Reset()
}

func (s *TestSuite) App() *App {
	return s.app
}

func (s *TestSuite) DB() *Database {
	return s.db
}

// Do sends body as JSON when it is not nil.
func (s *TestSuite) Do(method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.app.HTTPHandler.ServeHTTP(rec, req)
	return rec
}

func (s *TestSuite) DecodeJSON(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func (s *TestSuite) Cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// WaitForMail blocks until the outbox handler has delivered a mail to email.
func (s *TestSuite) WaitForMail(email string) mails.Payload {
	var got mails.Payload
	s.Require().Eventually(func() bool {
		for _, m := range s.app.MockMailSender.GetSentMails() {
			if m.To == email {
				got = m
				return true
			}
		}
		return false
	}, 10*time.Second, 20*time.Millisecond, "no mail delivered to %s", email)
	return got
}
