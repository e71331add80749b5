package port

import (
	"context"

	"vision-batch/internal/domain/entity"
)

// EventListener наблюдатель событий воркера
type EventListener interface {
	OnEvent(event entity.Event)
}

// EventListenerFunc позволяет использовать функцию как EventListener
type EventListenerFunc func(event entity.Event)

func (f EventListenerFunc) OnEvent(event entity.Event) {
	f(event)
}

// RunNotifier отправляет итог запуска во внешний канал
type RunNotifier interface {
	NotifyCompleted(ctx context.Context, run *entity.Run) error
}
