package service

import (
	"difendimi.live/intake/internal/queue"
	"difendimi.live/intake/internal/store"
)

type ServicesConfig struct {
	Cases    store.CaseStore
	Reports  store.ReportStore
	Sessions store.SessionStore
	TxRunner TxRunner
	Loop     IntakeLoop
	Producer queue.Producer
}

type Services struct {
	cfg ServicesConfig
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{cfg: cfg}
}

func (s *Services) Intake() IntakeService {
	return NewIntakeService(s.cfg.Sessions, s.cfg.Loop, s.cfg.Producer)
}

func (s *Services) Cases() CaseService {
	return NewCaseService(s.cfg.Cases, s.cfg.Reports, s.cfg.TxRunner, s.cfg.Producer)
}
