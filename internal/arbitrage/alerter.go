package arbitrage

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
)

// Alerter posts opportunities to a discord webhook. It is a Sink, so the
// watcher treats it like any other destination.
type Alerter struct {
	client webhook.Client
	log    *zap.Logger
}

func NewAlerter(webhookUrl string, log *zap.Logger) (*Alerter, error) {
	client, err := webhook.NewWithURL(webhookUrl)
	if err != nil {
		return nil, err
	}
	return &Alerter{client: client, log: log}, nil
}

func (a *Alerter) Record(ctx context.Context, opportunity domain.Opportunity) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := a.client.CreateEmbeds([]discord.Embed{
		discord.NewEmbedBuilder().
			SetTitle("Arbitrage opportunity found").
			SetColor(0x00ff00).
			AddField("Pair", opportunity.Pair, true).
			AddField("Buy On", opportunity.BuyOn.String(), true).
			AddField("Sell On", opportunity.SellOn.String(), true).
			AddField("​", "​", false).
			AddField("Buy Price", fmt.Sprintf("%f", opportunity.BuyPrice), true).
			AddField("Sell Price", fmt.Sprintf("%f", opportunity.SellPrice), true).
			AddField("​", "​", false).
			AddField("Gross Edge", fmt.Sprintf("%.6f", opportunity.GrossEdge), true).
			AddField("Net Edge", fmt.Sprintf("%.6f", opportunity.NetEdge), true).
			Build()}, rest.WithCtx(ctx))
	if err != nil {
		a.log.Error("failed to send message to discord: " + err.Error())
	}
	return err
}

// Close releases the webhook client.
func (a *Alerter) Close(ctx context.Context) {
	a.client.Close(ctx)
}
