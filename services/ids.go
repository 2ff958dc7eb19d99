package services

import (
	"context"
	"fmt"

	"github.com/manasa1349/payment-gateway-task/utils"
)

const maxIDAttempts = 5

// uniqueID draws prefixed IDs until exists reports a free one.
func uniqueID(ctx context.Context, prefix string, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := utils.GenerateID(prefix)
		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique %s id after %d attempts", prefix, maxIDAttempts)
}
