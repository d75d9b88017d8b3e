package engine

import (
	"errors"
	"fmt"
)

// ErrObserverNotAttached Detach的观察者未注册
var ErrObserverNotAttached = errors.New("observer not attached")

// Observer 聚合结果更新时被通知，通过Engine.Result拉取新结果
type Observer interface {
	Update() error
}

// ObserverFunc 把普通函数包装为Observer
// 以指针形式注册，便于Detach时比较
type ObserverFunc struct {
	fn func() error
}

// NewObserverFunc 创建函数观察者
func NewObserverFunc(fn func() error) *ObserverFunc {
	return &ObserverFunc{fn: fn}
}

// Update 调用被包装的函数
func (o *ObserverFunc) Update() error {
	if o.fn == nil {
		return nil
	}
	return o.fn()
}

// Subject 按注册顺序保存观察者，允许重复注册
type Subject struct {
	observers []Observer
}

// Attach 注册观察者
func (s *Subject) Attach(o Observer) {
	s.observers = append(s.observers, o)
}

// Detach 移除第一次出现的观察者
func (s *Subject) Detach(o Observer) error {
	for i, v := range s.observers {
		if v == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return nil
		}
	}
	return ErrObserverNotAttached
}

// Notify 依次通知，某个观察者出错时停止并返回该错误
func (s *Subject) Notify() error {
	for i, o := range s.observers {
		if err := o.Update(); err != nil {
			return fmt.Errorf("observer %d update: %w", i, err)
		}
	}
	return nil
}

// Len 已注册的观察者数量
func (s *Subject) Len() int { return len(s.observers) }

// Clear 移除全部观察者
func (s *Subject) Clear() { s.observers = nil }
