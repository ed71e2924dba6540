package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

func StartSlackBot(cfg Config, db *sql.DB, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, db, cfg, cmd)
			case socketmode.EventTypeEventsAPI:
				client.Ack(*evt.Request)
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				go handleEventsAPI(api, cfg, eventsAPIEvent)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/metrics":
		handleMetrics(api, db, cfg, cmd)
	case "/ask":
		handleAsk(api, db, cfg, cmd)
	case "/brief":
		handleBrief(api, db, cfg, cmd)
	case "/boards":
		handleBoards(api, db, cfg, cmd)
	case "/refresh":
		handleRefresh(api, db, cfg, cmd)
	case "/bihelp":
		handleHelp(api, cfg, cmd)
	}
}

func handleEventsAPI(api *slack.Client, cfg Config, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MemberJoinedChannelEvent:
		handleMemberJoined(api, cfg, ev)
	}
}

func handleMemberJoined(api *slack.Client, cfg Config, ev *slackevents.MemberJoinedChannelEvent) {
	log.Printf("member-joined user=%s channel=%s", ev.User, ev.Channel)

	teamName := cfg.TeamName
	if teamName == "" {
		teamName = "the team"
	}

	intro := fmt.Sprintf("Welcome to %s! I'm BizBot — live business intelligence from the Monday.com Deals and Work Orders boards.\n\n"+
		"Here's how to get started:\n"+
		"• `/metrics` — Current pipeline and work-order metrics\n"+
		"• `/ask <question>` — Ask a business question (e.g. `/ask which sector drives the most revenue?`)\n"+
		"• `/bihelp` — See all available commands",
		teamName,
	)

	_, _, err := api.PostMessage(ev.Channel,
		slack.MsgOptionText(intro, false),
		slack.MsgOptionPostEphemeral(ev.User),
	)
	if err != nil {
		log.Printf("member-joined intro error user=%s channel=%s: %v", ev.User, ev.Channel, err)
	}
}

func handleMetrics(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	deals, workOrders, metrics, fromCache, err := LoadOrRefresh(cfg, db)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading board data: %v", err))
		log.Printf("metrics error: %v", err)
		return
	}
	log.Printf("metrics deals=%d work_orders=%d cached=%t", len(deals.Rows), len(workOrders.Rows), fromCache)

	text := fmt.Sprintf("*%s — Business Metrics*\n```%s```", cfg.TeamName, RenderMetrics(metrics))
	postToChannel(api, cmd, text)
}

func handleAsk(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	question := strings.TrimSpace(cmd.Text)
	if question == "" {
		postEphemeral(api, cmd, "Usage: `/ask <question>` — e.g. `/ask what is our expected revenue this quarter?`")
		return
	}

	deals, workOrders, _, fromCache, err := LoadOrRefresh(cfg, db)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading board data: %v", err))
		log.Printf("ask load error: %v", err)
		return
	}
	log.Printf("ask user=%s cached=%t question=%q", cmd.UserID, fromCache, question)

	answer, usage, err := AskAgent(cfg, deals, workOrders, question)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Analysis error: %v", err))
		log.Printf("ask llm error: %v", err)
		return
	}

	text := fmt.Sprintf("*Q:* %s\n%s\n_%s tokens_", question, answer, formatTokenCount(usage.TotalTokens()))
	postToChannel(api, cmd, text)
}

func handleBrief(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	_, _, metrics, fromCache, err := LoadOrRefresh(cfg, db)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading board data: %v", err))
		log.Printf("brief load error: %v", err)
		return
	}
	log.Printf("brief user=%s cached=%t", cmd.UserID, fromCache)

	summary, usage, err := GenerateExecutiveSummary(cfg, metrics)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Generation error: %v", err))
		log.Printf("brief llm error: %v", err)
		return
	}

	text := fmt.Sprintf("*Executive Summary — %s*\n%s\n_%s tokens_", cfg.TeamName, summary, formatTokenCount(usage.TotalTokens()))
	postToChannel(api, cmd, text)
}

func handleBoards(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	deals, workOrders, _, _, err := LoadOrRefresh(cfg, db)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading board data: %v", err))
		log.Printf("boards error: %v", err)
		return
	}

	which := strings.ToLower(strings.TrimSpace(cmd.Text))
	switch which {
	case "", "deals":
		postEphemeral(api, cmd, fmt.Sprintf("*Deals* (%d rows)\n```%s```",
			len(deals.Rows), RenderTablePreview(deals, cfg.PreviewRows)))
	case "workorders", "work_orders", "wo":
		postEphemeral(api, cmd, fmt.Sprintf("*Work Orders* (%d rows)\n```%s```",
			len(workOrders.Rows), RenderTablePreview(workOrders, cfg.PreviewRows)))
	default:
		postEphemeral(api, cmd, "Usage: `/boards [deals|workorders]`")
	}
}

func handleRefresh(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	postEphemeral(api, cmd, "Refreshing both boards from Monday.com...")

	result, err := RefreshBoards(cfg, db)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error refreshing boards: %v", err))
		log.Printf("refresh command error: %v", err)
		return
	}

	postEphemeral(api, cmd, FormatRefreshSummary(result))
}

func handleHelp(api *slack.Client, cfg Config, cmd slack.SlashCommand) {
	lines := []string{
		"*BizBot Commands*",
		"",
		"`/metrics` — Current business metrics from the Deals and Work Orders boards.",
		"`/ask <question>` — Ask the BI agent a question grounded in live board aggregates.",
		"`/brief` — Generate a five-bullet executive summary.",
		"`/boards [deals|workorders]` — Preview the cleaned board tables.",
		"`/refresh` — Force a refetch of both boards (bypasses the cache).",
		"`/bihelp` — Show this help.",
	}
	postEphemeral(api, cmd, strings.Join(lines, "\n"))
}

func postToChannel(api *slack.Client, cmd slack.SlashCommand, text string) {
	_, _, err := api.PostMessage(cmd.ChannelID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting message: %v", err)
		postEphemeral(api, cmd, text)
	}
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	postEphemeralTo(api, cmd.ChannelID, cmd.UserID, text)
}

func postEphemeralTo(api *slack.Client, channelID, userID, text string) {
	_, err := api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral message: %v", err)
	}
}

func formatTokenCount(tokens int64) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	rounded := (tokens + 50) / 100
	whole := rounded / 10
	decimal := rounded % 10
	if decimal == 0 {
		return fmt.Sprintf("%dk", whole)
	}
	return fmt.Sprintf("%d.%dk", whole, decimal)
}
