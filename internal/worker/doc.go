// Package worker выполняет задачи из рабочих очередей.
//
// # Обзор
//
// Worker — stateless компонент darkbot. Он потребляет TaskMessage из основной
// очереди (боты) и upload очереди (загрузка готовых видео), запускает по одному
// pipeline на каждый instance через pipeline.FanOut и логирует результаты.
// Workers масштабируются горизонтально: несколько экземпляров потребляют из
// одних и тех же очередей, ширина пула внутри процесса задаётся Concurrency.
//
//	w := worker.New(worker.Config{
//	    Conn:      mqConn,
//	    Publisher: publisher,
//	    Topology:  topology,
//	    Registry:  registry,
//	    Uploads:   uploads,
//	    Logger:    logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Ошибки
//
// Пакет различает два уровня ошибок:
//   - Ошибки шагов (scrape, process, edit, upload) — остаются внутри instance
//     и превращаются в PipelineResult со статусом error.
//   - Ошибки задачи — некорректное сообщение, неизвестный тип бота, паника
//     вне FanOut, провал всех instances. Они передаются в Router.
//
// # Retry
//
// Повторная доставка выполняется воркером: Router публикует копию сообщения
// с RetryCount+1 и подтверждает оригинал. Когда RetryCount достиг MaxRetries,
// сообщение оборачивается в DeadLetterEnvelope и уходит в DLX. Если публикация
// не удалась, оригинал возвращается в очередь (nack с requeue).
//
// Сообщения, которые не удалось разобрать, отклоняются без requeue и попадают
// в DLQ через dead-letter настройки очереди.
package worker
