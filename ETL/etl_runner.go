package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/load"
	"github.com/LilVoxy/fabric_activity_etl/ETL/runner"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// newRunner создает ETLRunner по конфигурации с учётом флагов
func newRunner(cfg config.ETLConfig) (*runner.ETLRunner, *utils.ETLLogger) {
	logger, err := utils.NewETLLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	r, err := runner.NewETLRunner(cfg, logger)
	if err != nil {
		logger.Error("Ошибка при создании ETL Runner: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	return r, logger
}

// signalContext возвращает контекст, который отменяется по SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// RunOnce выполняет одну сборку
func RunOnce(cfg config.ETLConfig) int {
	r, _ := newRunner(cfg)
	defer r.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := r.ExecuteETL(ctx, runner.RunOptions{}); err != nil {
		return 1
	}
	return 0
}

// RunScheduled выполняет сборки по расписанию до получения сигнала завершения
func RunScheduled(cfg config.ETLConfig) int {
	r, logger := newRunner(cfg)
	defer r.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := r.StartScheduler(ctx); err != nil {
		logger.Error("%v", err)
		return 1
	}
	return 0
}

// RunMerge выполняет только Smart Merge
func RunMerge(cfg config.ETLConfig) int {
	r, logger := newRunner(cfg)
	defer r.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := r.RunMerge(ctx)
	if err != nil {
		logger.Error("Ошибка режима merge: %v", err)
		return 1
	}
	fmt.Printf("Записано %d обогащённых строк в %s (сопоставлено %d, только задания %d)\n",
		result.Rows, result.Path, result.Merge.Matched, result.Merge.JobOnly)
	return 0
}

// PrintSchema печатает DDL таблиц звезды
func PrintSchema() int {
	fmt.Print(load.RenderDDL(load.DescribeSchema()))
	return 0
}

func main() {
	cfg := config.GetConfig()

	modePtr := flag.String("mode", "scheduled", "Режим работы: scheduled, once, merge или schema")
	inputPtr := flag.String("input", cfg.InputDir, "Каталог со страницами экстрактора")
	outputPtr := flag.String("output", cfg.OutputDir, "Выходной каталог звезды")
	fullRefreshPtr := flag.Bool("full-refresh", cfg.FullRefresh, "Полная перестройка вместо инкрементальной загрузки")
	flag.Parse()

	cfg.InputDir = *inputPtr
	cfg.OutputDir = *outputPtr
	cfg.FullRefresh = *fullRefreshPtr

	log.Println("Запуск ETL Runner в режиме:", *modePtr)

	var code int
	switch *modePtr {
	case "once":
		code = RunOnce(cfg)
	case "scheduled":
		code = RunScheduled(cfg)
	case "merge":
		code = RunMerge(cfg)
	case "schema":
		code = PrintSchema()
	default:
		log.Println("Неизвестный режим работы:", *modePtr)
		log.Println("Доступные режимы: scheduled, once, merge, schema")
		code = 2
	}
	os.Exit(code)
}
