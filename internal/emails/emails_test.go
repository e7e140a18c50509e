package emails

import (
	"errors"
	"testing"
)

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{
			name: "valid",
			job:  Job{Recipient: "customer@example.com", Subject: "Order confirmed", Body: "Thanks!"},
		},
		{
			name:    "missing recipient",
			job:     Job{Subject: "Order confirmed", Body: "Thanks!"},
			wantErr: true,
		},
		{
			name:    "blank subject",
			job:     Job{Recipient: "customer@example.com", Subject: "   ", Body: "Thanks!"},
			wantErr: true,
		},
		{
			name:    "missing body",
			job:     Job{Recipient: "customer@example.com", Subject: "Order confirmed"},
			wantErr: true,
		},
		{
			name:    "not an email address",
			job:     Job{Recipient: "not-an-email", Subject: "Order confirmed", Body: "Thanks!"},
			wantErr: true,
		},
		{
			name:    "email with spaces",
			job:     Job{Recipient: "a b@example.com", Subject: "Order confirmed", Body: "Thanks!"},
			wantErr: true,
		},
		{
			name: "plus addressing",
			job:  Job{Recipient: "customer+orders@example.com", Subject: "Order confirmed", Body: "Thanks!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidJob) {
					t.Fatalf("err = %v, want ErrInvalidJob", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
