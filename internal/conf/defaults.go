// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Flashnotify")

	viper.SetDefault("log.enabled", true)
	viper.SetDefault("log.path", "logs/flashnotify.log")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.rotation", RotationDaily)
	viper.SetDefault("log.maxsizemb", 100)
	viper.SetDefault("log.compress", false)

	viper.SetDefault("dispatch.workers", 5)
	viper.SetDefault("dispatch.queuesize", 100)
	viper.SetDefault("dispatch.maxretries", 3)
	viper.SetDefault("dispatch.retrybasedelay", 500*time.Millisecond)
	viper.SetDefault("dispatch.retrymaxdelay", 30*time.Second)
	viper.SetDefault("dispatch.sendtimeout", 10*time.Second)
	viper.SetDefault("dispatch.defaultchannel", "push")
	viper.SetDefault("dispatch.perfwindow", 1024)
	viper.SetDefault("dispatch.successpolicy", "any")
	viper.SetDefault("dispatch.suppress.enabled", false)
	viper.SetDefault("dispatch.suppress.window", 5*time.Minute)

	viper.SetDefault("circuit.maxfailures", 5)
	viper.SetDefault("circuit.cooldown", 60*time.Second)

	viper.SetDefault("channels.email.enabled", false)
	viper.SetDefault("channels.email.from", "")
	viper.SetDefault("channels.sms.enabled", false)
	viper.SetDefault("channels.sms.timeout", 10*time.Second)
	viper.SetDefault("channels.push.enabled", false)
	viper.SetDefault("channels.push.urls", []string{})
	viper.SetDefault("channels.push.timeout", 10*time.Second)
	viper.SetDefault("channels.mqtt.enabled", false)
	viper.SetDefault("channels.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("channels.mqtt.topic", "flashnotify/alerts")
	viper.SetDefault("channels.mqtt.clientid", "flashnotify")
	viper.SetDefault("channels.mqtt.qos", 1)
	viper.SetDefault("channels.mqtt.retain", false)
	viper.SetDefault("channels.mqtt.connecttimeout", 30*time.Second)
	viper.SetDefault("channels.webhook.enabled", false)
	viper.SetDefault("channels.webhook.method", "POST")
	viper.SetDefault("channels.webhook.timeout", 30*time.Second)
	viper.SetDefault("channels.script.enabled", false)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "flashnotify.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "flashnotify")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.database", "flashnotify")

	viper.SetDefault("observability.enabled", false)
	viper.SetDefault("observability.listen", "0.0.0.0:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.interval", 30*time.Second)
	viper.SetDefault("monitor.cputhreshold", 90.0)
	viper.SetDefault("monitor.memorythreshold", 90.0)
	viper.SetDefault("monitor.diskthreshold", 90.0)
	viper.SetDefault("monitor.diskpath", "/")
	viper.SetDefault("monitor.breachcount", 3)
	viper.SetDefault("monitor.alertsperhour", 4)
	viper.SetDefault("monitor.preferredchannel", "")
}
