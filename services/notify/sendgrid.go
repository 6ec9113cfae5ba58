package notifysvc

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"

	sendgridAPIFunc = sendgrid.API // mockable

	ErrNoEmail = errors.New("recipient has no email address")
)

// SendgridNotifier emails parents through the sendgrid v3 API. Delivery is synchronous so that
// failures surface to the retry queue.
type SendgridNotifier struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ core.Notifier = (*SendgridNotifier)(nil)

func NewSendgridNotifier(conf *core.Config) *SendgridNotifier {
	return &SendgridNotifier{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(conf.AppName, conf.DefaultFromEmail),
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (sn *SendgridNotifier) prepare(n core.Notification) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = sn.subjPrefix + n.Subject
	p.AddTos(sgmail.NewEmail(n.To.Name, n.To.Email))

	m := sgmail.NewV3Mail()
	m.SetFrom(sn.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", n.Body))
	return m
}

func (sn *SendgridNotifier) Notify(_ context.Context, n core.Notification) error {
	if n.To.Email == "" {
		return ErrNoEmail
	}
	req := sendgrid.GetRequest(sn.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(sn.prepare(n))

	res, err := sendgridAPIFunc(req)
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
	}
	return nil
}
