package exchange

import (
	"context"
	"log"
	"time"

	"github.com/bytedance/sonic"
)

// StreamTickers keeps the last-price cache warm over one public WebSocket
// subscription. Reconnects forever until ctx is cancelled; the scheduler
// works fine without it (MidPrice falls back to REST), so errors here are
// logged and retried, never fatal.
func (c *Client) StreamTickers(ctx context.Context, symbols []string) {
	if len(symbols) == 0 {
		return
	}

	args := make([]map[string]string, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, map[string]string{"channel": "tickers", "instId": s})
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Printf("[WS] connect tickers %d symbols", len(symbols))
		conn, _, err := c.wsDialer.Dial(wsURL, nil)
		if err != nil {
			log.Printf("[WS] dial error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
			log.Printf("[WS] subscribe error: %v", err)
			_ = conn.Close()
			continue
		}

		// OKX drops idle connections; ping every 20s keeps it alive.
		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Printf("[WS] read error: %v", err)
				break
			}

			var frame struct {
				Arg struct {
					Channel string `json:"channel"`
					InstID  string `json:"instId"`
				} `json:"arg"`
				Data []struct {
					Last  string `json:"last"`
					BidPx string `json:"bidPx"`
					AskPx string `json:"askPx"`
				} `json:"data"`
			}
			if err := sonic.Unmarshal(msg, &frame); err != nil {
				continue
			}
			if frame.Arg.Channel != "tickers" || len(frame.Data) == 0 {
				continue
			}

			d := frame.Data[0]
			bid, ask := parseFloat(d.BidPx), parseFloat(d.AskPx)
			px := parseFloat(d.Last)
			if bid > 0 && ask > 0 {
				px = (bid + ask) / 2
			}
			if px > 0 {
				c.setPrice(frame.Arg.InstID, px)
			}
		}

		close(stopPing)
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}
