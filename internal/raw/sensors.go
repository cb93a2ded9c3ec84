package raw

// Sensor origins served by the raw layer. Each registers under its origin
// string so that the feature name and the backend origin coincide.
func init() {
	registerSensor("lamp.accelerometer", "accelerometer")
	registerSensor("lamp.gps", "gps")
	registerSensor("lamp.gyroscope", "gyroscope")
	registerSensor("lamp.screen_state", "screen_state")
	registerSensor("lamp.calls", "calls")
	registerSensor("lamp.telephony", "telephony")
	registerSensor("lamp.messages_usage", "messages_usage")
	registerSensor("lamp.steps", "steps")
	registerSensor("lamp.sleep", "sleep")
	registerSensor("lamp.wifi", "wifi")
	registerSensor("lamp.bluetooth", "bluetooth")
	registerSensor("lamp.nearby_device", "nearby_device")
	registerSensor("lamp.device_usage", "device_usage")
	registerSensor("lamp.device_state", "device_state")
	registerSensor("lamp.visits", "visits")
	registerSensor("lamp.analytics", "analytics")
}
