package email

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/BioB3/Flight-within-USA-Displayer/src/storage"
)

const rawMessage = "From: ops@example.com\r\n" +
	"Subject: Flight dataset January\r\n" +
	"Date: Mon, 06 Jan 2020 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"datasets attached\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/csv\r\n" +
	"Content-Disposition: attachment; filename=\"Jan_2020_ontime.csv\"\r\n" +
	"\r\n" +
	"ORIGIN,DEST\r\n" +
	"ABE,ATL\r\n" +
	"--XYZ--\r\n"

func TestParseMessage(t *testing.T) {
	email, err := ParseMessage(42, strings.NewReader(rawMessage), MailQuery{})
	require.NoError(t, err)

	assert.Equal(t, uint32(42), email.UID)
	assert.Equal(t, "Flight dataset January", email.Subject)
	assert.Equal(t, "ops@example.com", email.From)
	assert.True(t, email.Date.Equal(time.Date(2020, time.January, 6, 10, 0, 0, 0, time.UTC)))

	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "Jan_2020_ontime.csv", email.Attachments[0].Filename)
	assert.Contains(t, string(email.Attachments[0].Content), "ABE,ATL")

	// 只保留需要的附件
	email, err = ParseMessage(42, strings.NewReader(rawMessage), MailQuery{Attachments: []string{"airline.csv"}})
	require.NoError(t, err)
	assert.Empty(t, email.Attachments)
}

func TestParseMessageEncodedHeaders(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("航班数据")
	require.NoError(t, err)
	subject := "=?gbk?B?" + base64.StdEncoding.EncodeToString([]byte(gbk)) + "?="

	raw := "From: =?iso-8859-1?Q?Ren=E9?= <rene@example.com>\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/csv\r\n" +
		"Content-Disposition: attachment; filename=\"=?iso-8859-1?Q?airline.csv?=\"\r\n" +
		"\r\n" +
		"AIRLINE_ID\r\n1\r\n" +
		"--XYZ--\r\n"

	email, err := ParseMessage(1, strings.NewReader(raw), MailQuery{Attachments: []string{"AIRLINE.csv"}})
	require.NoError(t, err)
	assert.Equal(t, "航班数据", email.Subject)
	assert.Equal(t, "rene@example.com", email.From)
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "airline.csv", email.Attachments[0].Filename)
}

func TestSearchCriteria(t *testing.T) {
	since := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	c := searchCriteria(MailQuery{Subject: "flight dataset"}, since)
	assert.Equal(t, "flight dataset", c.Header.Get("Subject"))
	assert.Equal(t, []string{imap.SeenFlag}, c.WithoutFlags)
	assert.True(t, c.Since.Equal(since))

	assert.Empty(t, searchCriteria(MailQuery{}, since).Header)
}

type fakeMailService struct {
	emails       []*Email
	connectErr   error
	fetchErr     error
	query        MailQuery
	disconnected bool
}

func (f *fakeMailService) Connect() error { return f.connectErr }
func (f *fakeMailService) Disconnect()    { f.disconnected = true }
func (f *fakeMailService) FetchDatasetEmails(q MailQuery) ([]*Email, error) {
	f.query = q
	return f.emails, f.fetchErr
}

func TestLatestDatasetEmail(t *testing.T) {
	logger := storage.NewNopLogger()
	day := func(d int) time.Time { return time.Date(2020, time.January, d, 0, 0, 0, 0, time.UTC) }
	svc := &fakeMailService{emails: []*Email{
		{UID: 1, Date: day(2)},
		{UID: 3, Date: day(5)},
		{UID: 2, Date: day(5)},
	}}
	q := MailQuery{Subject: "flight dataset", Attachments: []string{"ontime.csv"}}

	got, err := LatestDatasetEmail(svc, q, logger)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint32(3), got.UID)
	assert.Equal(t, q, svc.query)
	assert.True(t, svc.disconnected)

	got, err = LatestDatasetEmail(&fakeMailService{}, q, logger)
	require.NoError(t, err)
	assert.Nil(t, got)

	boom := errors.New("boom")
	_, err = LatestDatasetEmail(&fakeMailService{connectErr: boom}, q, logger)
	assert.ErrorIs(t, err, boom)

	_, err = LatestDatasetEmail(&fakeMailService{fetchErr: boom}, q, logger)
	assert.ErrorIs(t, err, boom)
}

func TestConnectWithoutServer(t *testing.T) {
	c := NewEmailClient("", "user", "pass", 0, nil)
	assert.Error(t, c.Connect())
	assert.Equal(t, RecentMailDuration, c.since)

	_, err := c.FetchDatasetEmails(MailQuery{})
	assert.Error(t, err)
	c.Disconnect()
}
