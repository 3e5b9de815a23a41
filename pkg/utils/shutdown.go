// Graceful shutdown для долгих прогонов и режима расписания.
//
// Использование:
//
//	ctx, shutdown := utils.SetupGracefulShutdownWithContext()
//	defer shutdown()
//
// Первый SIGINT/SIGTERM отменяет контекст: прогон доходит до конца текущего
// файла, пишет отчёты и завершается. Второй сигнал завершает процесс сразу.
package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// forceExitCode — код выхода при повторном сигнале.
const forceExitCode = 130

// SetupGracefulShutdown отменяет контекст по сигналу.
//
// Возвращает функцию очистки: снимает обработчик сигналов и закрывает лог.
func SetupGracefulShutdown(cancel context.CancelFunc) func() {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			Info("Received signal, finishing current file", "signal", sig.String())
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigChan:
			Warn("Received second signal, exiting immediately", "signal", sig.String())
			Close()
			os.Exit(forceExitCode)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
		Close()
	}
}

// SetupGracefulShutdownWithContext создаёт контекст и настраивает graceful shutdown.
func SetupGracefulShutdownWithContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	shutdown := SetupGracefulShutdown(cancel)
	return ctx, func() {
		shutdown()
		cancel()
	}
}
