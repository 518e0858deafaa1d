package types

import "time"

type ErrorRes struct {
	Error string `json:"error" example:"monitor is not running"`
}

type NetfilterDHookReq struct {
	Type  string `json:"type" example:"iptables"`
	Table string `json:"table" example:"nat"`
}

type MonitorStatusRes struct {
	State               string    `json:"state" example:"healthy"`
	ConsecutiveFailures int       `json:"consecutiveFailures" example:"0"`
	Threshold           int       `json:"threshold" example:"3"`
	LastTarget          string    `json:"lastTarget,omitempty" example:"8.8.8.8"`
	LastProbeOK         bool      `json:"lastProbeOk"`
	LastProbeAt         time.Time `json:"lastProbeAt"`
	LastRuleCheck       time.Time `json:"lastRuleCheck"`
	Restarts            int       `json:"restarts" example:"0"`
	Targets             []string  `json:"targets"`
	Backend             string    `json:"backend" example:"iptables"`
	WLANIface           string    `json:"wlanIface" example:"wlan0"`
	ETHIface            string    `json:"ethIface" example:"eth0"`
	GatewayIP           string    `json:"gatewayIp" example:"192.168.1.1"`
}

type RuleRes struct {
	Kind    string `json:"kind" example:"NAT"`
	Table   string `json:"table" example:"nat"`
	Chain   string `json:"chain" example:"POSTROUTING"`
	Rule    string `json:"rule" example:"iptables -t nat -A POSTROUTING -o wlan0 -j MASQUERADE"`
	Present bool   `json:"present"`
	Error   string `json:"error,omitempty"`
}

type RulesRes struct {
	Backend string    `json:"backend" example:"iptables"`
	Missing int       `json:"missing" example:"0"`
	Rules   []RuleRes `json:"rules"`
}

type LogEntryRes struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level" example:"info"`
	Message string         `json:"message"`
	Error   string         `json:"error,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

type LogsRes struct {
	Logs []LogEntryRes `json:"logs"`
}
