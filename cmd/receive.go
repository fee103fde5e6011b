package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/docflow/apiserver/internal/delivery"
	"github.com/docflow/apiserver/internal/mq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// receiveCmd tails the sent-document channel and logs each notice.
var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Consume sent-document notices from the configured broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		queue, err := mq.Open(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer queue.Close()

		logger.Info("receiving", zap.String("backend", cfg.MQ.Backend), zap.String("channel", cfg.MQ.Channel))
		err = queue.Subscribe(cmd.Context(), cfg.MQ.Channel, func(ctx context.Context, msg mq.Message) error {
			var notice delivery.SentNotice
			if err := json.Unmarshal(msg.Data, &notice); err != nil {
				logger.Warn("dropping malformed notice", zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			logger.Info("document sent",
				zap.String("message_id", msg.ID),
				zap.Int("document_id", notice.ID),
				zap.Int64("code", notice.Code),
				zap.String("subject", notice.Subject),
				zap.String("sender", notice.Sender),
				zap.String("receiver", notice.Receiver),
				zap.Time("sent_at", notice.SentAt),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe %s: %w", cfg.MQ.Channel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(receiveCmd)
}
