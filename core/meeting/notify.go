package meeting

import (
	"context"
	"fmt"
	"net/mail"
	"sync"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/user"
)

// Notifier e-mails students about their meetings as events come through a broker.
type Notifier struct {
	usrSvc  user.Service
	mailSvc core.EmailService
	logger  core.Logger
	sub     *Subscription
	wg      sync.WaitGroup
}

// StartNotifier subscribes to broker and sends mails until Stop is called.
func StartNotifier(broker *Broker, usrSvc user.Service, mailSvc core.EmailService, logger core.Logger, buffer int) *Notifier {
	n := &Notifier{
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		logger:  logger,
		sub:     broker.Subscribe(buffer),
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for e := range n.sub.C {
			n.notify(context.Background(), e)
		}
	}()
	return n
}

// Stop unsubscribes and waits for pending mails to be handed over.
func (n *Notifier) Stop() {
	n.sub.Unsubscribe()
	n.wg.Wait()
}

func (n *Notifier) notify(ctx context.Context, e Event) {
	m := e.Meeting
	student, err := n.usrSvc.GetByID(ctx, m.StudentID)
	if err != nil {
		n.logger.Warn(fmt.Sprintf("meeting %s: looking up student %s: %v", m.ID, m.StudentID, err), err)
		return
	}
	if !student.IsActive || student.Email == "" {
		return
	}

	facultyName := m.FacultyName
	if facultyName == "" {
		if guide, err := n.usrSvc.GetByID(ctx, m.FacultyID); err == nil {
			facultyName = guide.Name
		}
	}

	msg := &core.EmailMessage{
		To: []mail.Address{{Name: student.Name, Address: student.Email}},
		TemplateData: map[string]interface{}{
			"StudentName":    student.Name,
			"FacultyName":    facultyName,
			"MeetingNumber":  m.MeetingNumber,
			"Title":          m.Title,
			"ScheduledDate":  m.ScheduledDate.Format("Mon, 02 Jan 2006 15:04 MST"),
			"Duration":       m.Duration,
			"MeetingType":    m.MeetingType,
			"Status":         m.Status,
			"MeetingSummary": m.MeetingSummary,
			"GuideRemarks":   m.GuideRemarks,
		},
	}
	switch e.Kind {
	case EventCreated:
		msg.Subject = fmt.Sprintf("Meeting %d scheduled", m.MeetingNumber)
		msg.TemplateName = "meeting_scheduled"
	case EventUpdated:
		msg.Subject = fmt.Sprintf("Meeting %d %s", m.MeetingNumber, m.Status)
		msg.TemplateName = "meeting_updated"
	default:
		return
	}
	n.mailSvc.SendMessages(msg)
}
