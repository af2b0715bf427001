package network

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/arena-game/internal/logging"
)

// StartMetricsServer запускает HTTP-эндпоинт Prometheus на указанном
// порту. Сервер работает в отдельной горутине до завершения процесса.
func StartMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	go func() {
		logging.Info("📈 Prometheus метрики доступны на http://localhost%s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logging.Error("Ошибка HTTP-сервера метрик: %v", err)
		}
	}()
}
