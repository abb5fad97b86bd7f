package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"smartscrape/smartscrape/controllers"
	"smartscrape/smartscrape/utils/logging"
	"smartscrape/smartscrape/utils/types"
)

// WSHandler serves the persistent extension channel. Each frame is one
// RPC message; frames are handled concurrently so a long scrape never
// blocks a status check on the same connection.
func WSHandler(ctrl *controllers.QueryController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		logging.RequestLogger.Info("websocket client connected",
			zap.String("remote", r.RemoteAddr))

		var wg sync.WaitGroup
		defer wg.Wait()

		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				logging.AppLogger.Info("websocket client disconnected", zap.Error(err))
				return
			}
			if typ != websocket.MessageText {
				conn.Close(websocket.StatusUnsupportedData, "unsupported data")
				return
			}

			var msg types.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				writeReply(ctx, conn, types.Reply{Error: "invalid json"})
				continue
			}

			wg.Add(1)
			go func(msg types.Message) {
				defer wg.Done()
				writeReply(ctx, conn, ctrl.Dispatch(ctx, msg))
			}(msg)
		}
	}
}

func writeReply(ctx context.Context, conn *websocket.Conn, reply types.Reply) {
	buf, err := json.Marshal(reply)
	if err != nil {
		logging.ErrorLogger.Error("marshal reply failed", zap.Error(err))
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, buf); err != nil {
		logging.AppLogger.Info("websocket write failed", zap.Error(err))
	}
}
