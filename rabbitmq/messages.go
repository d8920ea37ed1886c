package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"

	"grocery-orders/models"
)

// EmailJob is one order email waiting to be sent.
type EmailJob struct {
	Recipient string       `json:"recipient"`
	AdminCopy bool         `json:"admin_copy"`
	Order     models.Order `json:"order"`
}

func EncodeEmailJob(job EmailJob) ([]byte, error) {
	b, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode email job: %w", err)
	}
	return b, nil
}

func DecodeEmailJob(body []byte) (EmailJob, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return EmailJob{}, fmt.Errorf("decode email job: %w", err)
	}
	if job.Recipient == "" || job.Order.OrderNumber == "" {
		return EmailJob{}, errors.New("decode email job: recipient and order number are required")
	}
	return job, nil
}

func DecodeOrderEvent(body []byte) (models.OrderEvent, error) {
	var ev models.OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return models.OrderEvent{}, fmt.Errorf("decode order event: %w", err)
	}
	if ev.OrderID == "" || ev.Type == "" {
		return models.OrderEvent{}, errors.New("decode order event: order_id and type are required")
	}
	return ev, nil
}
