package bootstrap

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.uber.org/fx"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/health"
)

// ChannelServiceName is the gRPC health service name of the room channel.
const ChannelServiceName = "poker.channel"

const healthProbeInterval = 10 * time.Second

func NewGRPCServer() *grpc.Server {
	return grpc.NewServer()
}

func NewGRPCHealthServer() *grpchealth.Server {
	return grpchealth.NewServer()
}

func RegisterHealthService(server *grpc.Server, hs *grpchealth.Server) {
	healthpb.RegisterHealthServer(server, hs)
}

func servingStatus(s health.Status) healthpb.HealthCheckResponse_ServingStatus {
	if s == health.StatusUnhealthy {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// WatchHealth mirrors the HTTP readiness probe into the gRPC health service.
func WatchHealth(lc fx.Lifecycle, hs *grpchealth.Server, h *health.Handler, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	probe := func() {
		probeCtx, probeCancel := context.WithTimeout(ctx, 5*time.Second)
		defer probeCancel()
		status, _ := h.Check(probeCtx)
		serving := servingStatus(status)
		hs.SetServingStatus("", serving)
		hs.SetServingStatus(ChannelServiceName, serving)
		if serving != healthpb.HealthCheckResponse_SERVING {
			logger.Warn("channel service not serving", "status", status)
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(healthProbeInterval)
				defer ticker.Stop()
				probe()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						probe()
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			hs.Shutdown()
			return nil
		},
	})
}

func StartGRPCServer(lc fx.Lifecycle, server *grpc.Server, cfg *Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return err
			}
			go func() {
				logger.Info("gRPC server starting", "addr", cfg.GRPCAddr)
				if err := server.Serve(lis); err != nil {
					logger.Error("gRPC server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.GracefulStop()
			return nil
		},
	})
}

var GRPCModule = fx.Options(
	fx.Provide(NewGRPCServer, NewGRPCHealthServer),
	fx.Invoke(RegisterHealthService),
	fx.Invoke(WatchHealth),
	fx.Invoke(StartGRPCServer),
)
