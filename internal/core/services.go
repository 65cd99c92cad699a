package core

import (
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
)

type Services struct {
	Backup *BackupService
}

func NewServices(records RecordStore, tc temporalclient.Client, logger zerolog.Logger) *Services {
	return &Services{
		Backup: NewBackupService(records, tc, logger),
	}
}
