package notification

import "github.com/dumeirei/agency-portal/pkg/apiclient"

// Style 通知的颜色与图标提示
type Style struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var styles = map[apiclient.NotificationType]Style{
	apiclient.NotifyNewUser:       {Color: "blue", Icon: "user-plus"},
	apiclient.NotifyNewContact:    {Color: "green", Icon: "mail"},
	apiclient.NotifyNewQuote:      {Color: "purple", Icon: "file-text"},
	apiclient.NotifyNewTicket:     {Color: "orange", Icon: "life-buoy"},
	apiclient.NotifySystemUpdate:  {Color: "cyan", Icon: "refresh-cw"},
	apiclient.NotifySecurityAlert: {Color: "red", Icon: "shield-alert"},
	apiclient.NotifyMaintenance:   {Color: "yellow", Icon: "wrench"},
}

// StyleFor 按类型取展示样式，未知类型使用灰色铃铛
func StyleFor(t apiclient.NotificationType) Style {
	if s, ok := styles[t]; ok {
		return s
	}
	return Style{Color: "gray", Icon: "bell"}
}

// Item 带样式提示的通知
type Item struct {
	apiclient.Notification
	Style
}

func toItems(list []apiclient.Notification) []Item {
	items := make([]Item, 0, len(list))
	for _, n := range list {
		items = append(items, Item{Notification: n, Style: StyleFor(n.Type)})
	}
	return items
}
